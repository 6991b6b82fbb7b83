package model

import "testing"

func TestIsDeviceLocalSetting(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"activeWorkspaceId", true},
		{"selectedNoteId:ws1", true},
		{"sidebarWidth:ws-abc", true},
		{"theme", false},
		{"calendarView", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsDeviceLocalSetting(tt.key); got != tt.want {
			t.Errorf("IsDeviceLocalSetting(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a, b)
	}
}
