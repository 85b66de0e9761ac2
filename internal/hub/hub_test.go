package hub

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// socketServer upgrades every request and hands the server-side connection
// to the test over a channel.
func socketServer(t *testing.T) (*httptest.Server, <-chan *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func dial(t *testing.T, srv *httptest.Server, conns <-chan *websocket.Conn) (server, client *websocket.Conn) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	select {
	case server = <-conns:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server-side connection")
	}
	return server, client
}

func readFrame(t *testing.T, client *websocket.Conn) string {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(raw)
}

func TestRegisterAndSendTo(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	server, client := dial(t, srv, conns)

	conn := registry.Register("alice", server)
	if conn.PlayerID() != "alice" {
		t.Fatalf("unexpected player id %q", conn.PlayerID())
	}
	if registry.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", registry.Count())
	}

	registry.SendTo("alice", "YourTurn|room-1")
	if got := readFrame(t, client); got != "YourTurn|room-1" {
		t.Fatalf("unexpected frame %q", got)
	}
}

func TestSendToOfflinePlayerIsSwallowed(t *testing.T) {
	registry := NewRegistry(nil)
	registry.SendTo("ghost", "YourTurn|room-1")
	if registry.Count() != 0 {
		t.Fatal("registry should stay empty")
	}
}

func TestDuplicateRegistrationSupersedes(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	firstServer, firstClient := dial(t, srv, conns)
	secondServer, secondClient := dial(t, srv, conns)

	registry.Register("alice", firstServer)
	second := registry.Register("alice", secondServer)

	// The first client sees a close frame carrying the supersede reason.
	firstClient.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := firstClient.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected a close error, got %v", err)
	}
	if closeErr.Text != "superseded" {
		t.Fatalf("expected supersede reason, got %q", closeErr.Text)
	}

	if registry.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", registry.Count())
	}
	if got, _ := registry.Get("alice"); got != second {
		t.Fatal("the newer connection should be the registered entry")
	}

	registry.SendTo("alice", "YourTurn|room-1")
	if got := readFrame(t, secondClient); got != "YourTurn|room-1" {
		t.Fatalf("unexpected frame %q", got)
	}
}

func TestUnregisterLeavesSupersedingConnection(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	firstServer, _ := dial(t, srv, conns)
	secondServer, _ := dial(t, srv, conns)

	first := registry.Register("alice", firstServer)
	second := registry.Register("alice", secondServer)

	// The superseded connection's read loop unwinds late; its unregister
	// must not evict the replacement.
	registry.Unregister(first)
	if got, ok := registry.Get("alice"); !ok || got != second {
		t.Fatal("unregistering a superseded connection must not evict the newer one")
	}

	registry.Unregister(second)
	if registry.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", registry.Count())
	}
	registry.Unregister(second) // idempotent
	registry.Unregister(nil)
}

func TestSendAllReachesEveryConnection(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	aliceServer, aliceClient := dial(t, srv, conns)
	bobServer, bobClient := dial(t, srv, conns)

	registry.Register("alice", aliceServer)
	registry.Register("bob", bobServer)

	registry.SendAll("StatusUpdate|carol,1")
	if got := readFrame(t, aliceClient); got != "StatusUpdate|carol,1" {
		t.Fatalf("alice got %q", got)
	}
	if got := readFrame(t, bobClient); got != "StatusUpdate|carol,1" {
		t.Fatalf("bob got %q", got)
	}
}

func TestSendEachSkipsMissingPlayers(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	aliceServer, aliceClient := dial(t, srv, conns)
	registry.Register("alice", aliceServer)

	registry.SendEach([]string{"alice", "ghost"}, "Winner|alice")
	if got := readFrame(t, aliceClient); got != "Winner|alice" {
		t.Fatalf("alice got %q", got)
	}
}

func TestSendAfterCloseReturnsError(t *testing.T) {
	srv, conns := socketServer(t)
	registry := NewRegistry(nil)
	server, _ := dial(t, srv, conns)

	conn := registry.Register("alice", server)
	conn.Close("done")
	conn.Close("twice") // idempotent
	if err := conn.Send("YourTurn|room-1"); err == nil {
		t.Fatal("expected an error sending on a closed connection")
	}
}
