package sync

import (
	"context"
	gosync "sync"

	"github.com/neuronotes/neurosync/internal/model"
)

// fakeRemote is an in-memory RemoteStore for engine tests. It ignores
// the userID scoping (the engine always passes the authenticated user)
// and lets tests fire change-feed events by hand.
type fakeRemote struct {
	mu     gosync.Mutex
	userID string

	workspaces   map[string]model.Workspace
	folders      map[string]model.Folder
	notes        map[string]model.Note
	noteContents map[string]string
	events       map[string]model.CalendarEvent
	kanban       map[string]model.Kanban
	settings     map[string]model.Setting

	onEvent     func(ChangeEvent)
	unsubCalled int

	failList bool
}

func newFakeRemote(userID string) *fakeRemote {
	return &fakeRemote{
		userID:       userID,
		workspaces:   make(map[string]model.Workspace),
		folders:      make(map[string]model.Folder),
		notes:        make(map[string]model.Note),
		noteContents: make(map[string]string),
		events:       make(map[string]model.CalendarEvent),
		kanban:       make(map[string]model.Kanban),
		settings:     make(map[string]model.Setting),
	}
}

func (f *fakeRemote) CurrentUserID() string { return f.userID }

func (f *fakeRemote) ListWorkspaces(ctx context.Context, userID string) ([]model.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errRemoteDown
	}
	out := make([]model.Workspace, 0, len(f.workspaces))
	for _, w := range f.workspaces {
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeRemote) GetWorkspace(ctx context.Context, userID, id string) (*model.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workspaces[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &w, nil
}

func (f *fakeRemote) UpsertWorkspace(ctx context.Context, userID string, w model.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workspaces[w.ID] = w
	return nil
}

func (f *fakeRemote) DeleteWorkspace(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.workspaces, id)
	for fid, fo := range f.folders {
		if fo.WorkspaceID == id {
			delete(f.folders, fid)
		}
	}
	for nid, n := range f.notes {
		if n.WorkspaceID == id {
			delete(f.notes, nid)
			delete(f.noteContents, nid)
		}
	}
	for eid, ev := range f.events {
		if ev.WorkspaceID == id {
			delete(f.events, eid)
		}
	}
	delete(f.kanban, id)
	return nil
}

func (f *fakeRemote) ListFolders(ctx context.Context, userID, workspaceID string) ([]model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Folder
	for _, fo := range f.folders {
		if fo.WorkspaceID == workspaceID {
			out = append(out, fo)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetFolder(ctx context.Context, userID, id string) (*model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fo, ok := f.folders[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &fo, nil
}

func (f *fakeRemote) UpsertFolder(ctx context.Context, userID string, fo model.Folder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[fo.ID] = fo
	return nil
}

func (f *fakeRemote) DeleteFolder(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.folders, id)
	return nil
}

func (f *fakeRemote) ListNotes(ctx context.Context, userID, workspaceID string) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Note
	for _, n := range f.notes {
		if n.WorkspaceID == workspaceID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetNote(ctx context.Context, userID, id string) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &n, nil
}

func (f *fakeRemote) GetNoteContent(ctx context.Context, userID, noteID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.noteContents[noteID]
	if !ok {
		return "", model.ErrNotFound
	}
	return content, nil
}

func (f *fakeRemote) UpsertNote(ctx context.Context, userID string, n model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[n.ID] = n
	return nil
}

func (f *fakeRemote) UpsertNoteContent(ctx context.Context, userID, noteID, contentHTML string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteContents[noteID] = contentHTML
	return nil
}

func (f *fakeRemote) DeleteNote(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, id)
	delete(f.noteContents, id)
	return nil
}

func (f *fakeRemote) ListCalendarEvents(ctx context.Context, userID, workspaceID string) ([]model.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CalendarEvent
	for _, ev := range f.events {
		if ev.WorkspaceID == workspaceID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetCalendarEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &ev, nil
}

func (f *fakeRemote) UpsertCalendarEvent(ctx context.Context, userID string, ev model.CalendarEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.ID] = ev
	return nil
}

func (f *fakeRemote) DeleteCalendarEvent(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

func (f *fakeRemote) GetKanban(ctx context.Context, userID, workspaceID string) (*model.Kanban, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.kanban[workspaceID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &k, nil
}

func (f *fakeRemote) UpsertKanban(ctx context.Context, userID string, k model.Kanban) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kanban[k.WorkspaceID] = k
	return nil
}

func (f *fakeRemote) DeleteKanban(ctx context.Context, userID, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.kanban, workspaceID)
	return nil
}

func (f *fakeRemote) ListSettings(ctx context.Context, userID string) ([]model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Setting, 0, len(f.settings))
	for _, st := range f.settings {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeRemote) GetSetting(ctx context.Context, userID, key string) (*model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.settings[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &st, nil
}

func (f *fakeRemote) UpsertSetting(ctx context.Context, userID string, st model.Setting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[st.Key] = st
	return nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, userID string, onEvent func(ChangeEvent)) (func(), error) {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.onEvent = nil
		f.unsubCalled++
	}, nil
}

// fire delivers a feed event to the active subscriber, if any.
func (f *fakeRemote) fire(ev ChangeEvent) {
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}
