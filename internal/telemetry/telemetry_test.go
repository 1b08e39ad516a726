package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastReachesClient(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// registration happens just after the handshake completes
	for i := 0; i < 100 && s.ClientCount() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if s.ClientCount() != 1 {
		t.Fatalf("client never registered")
	}

	want := Snapshot{PC: 0x08000000, VCount: 42, IME: true, Frames: 7}
	s.Broadcast(want)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got Snapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("snapshot: got %+v want %+v", got, want)
	}
}

func TestBroadcastWithNoClientsIsHarmless(t *testing.T) {
	s := NewServer()
	s.Broadcast(Snapshot{PC: 1})
	if s.ClientCount() != 0 {
		t.Fatalf("unexpected clients")
	}
}
