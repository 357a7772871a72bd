package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dbehnke/rt4d-cps/pkg/logger"
)

func TestWebSocketHub_New(t *testing.T) {
	log := logger.New(logger.Config{Level: "info"})
	hub := NewWebSocketHub(log)

	if hub == nil {
		t.Fatal("NewWebSocketHub returned nil")
	}
}

func TestWebSocketHub_Run(t *testing.T) {
	log := logger.New(logger.Config{Level: "info"})
	hub := NewWebSocketHub(log)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	// Start hub in goroutine
	go hub.Run(ctx)

	// Wait for hub to start
	time.Sleep(50 * time.Millisecond)

	// Cancel context to stop hub
	cancel()

	// Wait a bit for hub to stop
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	log := logger.New(logger.Config{Level: "info"})
	hub := NewWebSocketHub(log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Start hub
	go hub.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Create test event
	event := Event{
		Type: "test",
		Data: map[string]interface{}{"message": "hello"},
	}

	// Broadcast should not panic even with no clients
	hub.Broadcast(event)

	// Give time for broadcast to process
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketHandler_DeliversEvents(t *testing.T) {
	hub := NewWebSocketHub(logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.GetClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.GetClientCount())
	}

	hub.BroadcastProgress("read", 27, 108)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("Bad event JSON: %v", err)
	}
	if event.Type != "transfer_progress" {
		t.Errorf("Expected transfer_progress, got %s", event.Type)
	}
	if event.Data["percent"] != float64(25) {
		t.Errorf("Expected 25 percent, got %v", event.Data["percent"])
	}
	if event.Timestamp.IsZero() {
		t.Error("Event timestamp not set")
	}
}

func TestWebSocketHub_TransferEvents(t *testing.T) {
	hub := NewWebSocketHub(nil)

	hub.BroadcastTransferDone("write", map[string]int{"channels": 2})
	hub.BroadcastTransferFailed("read", errors.New("timeout"))
	hub.BroadcastAddressBookSynced("radioid", 42)

	want := []string{"transfer_done", "transfer_failed", "addressbook_synced"}
	for _, typ := range want {
		select {
		case e := <-hub.broadcast:
			if e.Type != typ {
				t.Errorf("Expected %s, got %s", typ, e.Type)
			}
		default:
			t.Fatalf("Missing %s event", typ)
		}
	}
}

func TestEvent_Marshal(t *testing.T) {
	event := Event{
		Type:      "transfer_progress",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"op":   "write",
			"done": 12,
		},
	}

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	if len(data) == 0 {
		t.Error("Marshaled data is empty")
	}

	// Should contain the type
	if !strings.Contains(string(data), "transfer_progress") {
		t.Error("Marshaled data doesn't contain event type")
	}
}
