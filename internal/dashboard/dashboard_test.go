package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	syncpkg "github.com/neuronotes/neurosync/internal/sync"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func dialTestClient(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("failed to stop: %v", err)
	}
}

func TestBroadcastStatus(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestClient(t, s)

	// Let the server register the client before broadcasting.
	time.Sleep(50 * time.Millisecond)

	now := time.Now()
	s.BroadcastStatus(syncpkg.Status{Syncing: true, LastSyncAt: &now})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeStatus {
		t.Fatalf("expected status message, got %s", msg.Type)
	}
	var data StatusData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.Syncing || data.LastSyncAt == "" {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestBroadcastChange(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestClient(t, s)

	time.Sleep(50 * time.Millisecond)

	s.BroadcastChange(syncpkg.ChangeEvent{
		Table: syncpkg.TableNotes,
		Op:    syncpkg.OpUpdate,
		RowID: "n1",
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeEntityChange {
		t.Fatalf("expected entity change message, got %s", msg.Type)
	}
	var data EntityChangeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Table != "notes" || data.Op != "update" || data.RowID != "n1" {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestMultipleClients(t *testing.T) {
	s := startTestServer(t)
	first := dialTestClient(t, s)
	second := dialTestClient(t, s)

	time.Sleep(50 * time.Millisecond)

	s.BroadcastStatus(syncpkg.Status{Syncing: true})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != MessageTypeStatus {
			t.Errorf("expected status message, got %s", msg.Type)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
