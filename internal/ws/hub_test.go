package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/m-a-x-v/buildings-dashboard/internal/aggregate"
	"github.com/m-a-x-v/buildings-dashboard/internal/ingest"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(hub, zap.NewNop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/api/v1/ws/snapshots", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Broadcast(FromState(ingest.State{
		Status: ingest.StatusLoading,
		RunID:  "run-1",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg Message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageSnapshotPartial {
		t.Errorf("Type = %q, want %q", msg.Type, MessageSnapshotPartial)
	}
	if msg.RunID != "run-1" || msg.State.Status != ingest.StatusLoading {
		t.Errorf("message = %+v", msg)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, hub, 0)

	// Broadcasting to an empty hub is a no-op, not a panic.
	hub.Broadcast(FromState(ingest.State{Status: ingest.StatusIdle}))
}

func TestFromStateMessageTypes(t *testing.T) {
	complete := &aggregate.Snapshot{Complete: true}
	partial := &aggregate.Snapshot{}

	tests := []struct {
		name  string
		state ingest.State
		want  MessageType
	}{
		{"loading without snapshot", ingest.State{Status: ingest.StatusLoading}, MessageSnapshotPartial},
		{"partial snapshot", ingest.State{Status: ingest.StatusLoading, Snapshot: partial}, MessageSnapshotPartial},
		{"complete snapshot", ingest.State{Status: ingest.StatusSuccess, Snapshot: complete}, MessageSnapshotComplete},
		{"error", ingest.State{Status: ingest.StatusError, Err: "boom"}, MessageIngestError},
		{"error outranks snapshot", ingest.State{Status: ingest.StatusSuccess, Snapshot: complete, Err: "boom"}, MessageIngestError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromState(tt.state).Type; got != tt.want {
				t.Errorf("Type = %q, want %q", got, tt.want)
			}
		})
	}
}
