package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rahulanurag9630/collaborative-text-editor/access"
	"github.com/rahulanurag9630/collaborative-text-editor/store"
)

func newTestHub() (*Hub, *access.MemoryOracle, *store.MemoryStore) {
	st := store.NewMemoryStore()
	oracle := access.NewMemoryOracle()
	hub := NewHub(oracle, st, st)
	go hub.Run()
	return hub, oracle, st
}

// mockClient creates a registered client without a real WebSocket
// connection, for testing.
func mockClient(hub *Hub, userID, name string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		hub:    hub,
		send:   make(chan []byte, 256),
	}
	hub.Register(c)
	return c
}

func sendFrame(hub *Hub, c *Client, msg ClientMessage) {
	hub.events <- event{kind: evFrame, client: c, msg: msg}
}

func joinDoc(hub *Hub, c *Client, docID string) {
	sendFrame(hub, c, ClientMessage{Type: MsgJoinDocument, DocumentID: docID})
}

// recvMsg reads one message from a mock client's send channel with timeout.
func recvMsg(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return ServerMessage{}
	}
}

// assertNoMsg asserts the client receives nothing for a short while.
func assertNoMsg(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func roomCount(hub *Hub) int {
	var n int
	hub.inspect(func(r *Registry) { n = r.RoomCount() })
	return n
}

func roomMembers(hub *Hub, docID string) []string {
	var members []string
	hub.inspect(func(r *Registry) { members = r.Members(docID) })
	return members
}

func TestHub_JoinBroadcastsSnapshot(t *testing.T) {
	hub, oracle, _ := newTestHub()
	oracle.SetOwner("d1", "u1")
	oracle.Grant("d1", "u2", access.RoleViewer)

	c1 := mockClient(hub, "u1", "Alice")
	joinDoc(hub, c1, "d1")

	msg := recvMsg(t, c1)
	if msg.Type != MsgUserJoined {
		t.Fatalf("expected user-joined, got %q", msg.Type)
	}
	if msg.UserID != "u1" || msg.UserName != "Alice" {
		t.Errorf("unexpected identity: %s/%s", msg.UserID, msg.UserName)
	}
	if len(msg.Users) != 1 {
		t.Errorf("got %d users, want 1", len(msg.Users))
	}

	c2 := mockClient(hub, "u2", "Bob")
	joinDoc(hub, c2, "d1")

	// Both members, the joiner included, get the full membership snapshot.
	msg1 := recvMsg(t, c1)
	msg2 := recvMsg(t, c2)
	for _, msg := range []ServerMessage{msg1, msg2} {
		if msg.Type != MsgUserJoined {
			t.Fatalf("expected user-joined, got %q", msg.Type)
		}
		if msg.UserID != "u2" {
			t.Errorf("joining userId = %q, want %q", msg.UserID, "u2")
		}
		if len(msg.Users) != 2 {
			t.Errorf("got %d users, want 2", len(msg.Users))
		}
	}
}

func TestHub_JoinDocumentNotFound(t *testing.T) {
	hub, _, _ := newTestHub()

	c := mockClient(hub, "u1", "Alice")
	joinDoc(hub, c, "nope")

	msg := recvMsg(t, c)
	if msg.Type != MsgError || msg.Message != "Document not found" {
		t.Errorf("got %q/%q, want error/Document not found", msg.Type, msg.Message)
	}
	if n := roomCount(hub); n != 0 {
		t.Errorf("RoomCount = %d, want 0", n)
	}
}

func TestHub_JoinAccessDenied(t *testing.T) {
	hub, oracle, _ := newTestHub()
	oracle.SetOwner("d1", "u1")

	c1 := mockClient(hub, "u1", "Alice")
	joinDoc(hub, c1, "d1")
	recvMsg(t, c1) // user-joined

	// A denied join leaves the registry exactly as it was.
	c2 := mockClient(hub, "u2", "Bob")
	joinDoc(hub, c2, "d1")

	msg := recvMsg(t, c2)
	if msg.Type != MsgError || msg.Message != "Access denied" {
		t.Errorf("got %q/%q, want error/Access denied", msg.Type, msg.Message)
	}
	if members := roomMembers(hub, "d1"); len(members) != 1 || members[0] != c1.ID {
		t.Errorf("room members = %v, want only %s", members, c1.ID)
	}
	assertNoMsg(t, c1)
}

func TestHub_LeaveBroadcasts(t *testing.T) {
	hub, oracle, _ := newTestHub()
	oracle.SetOwner("d1", "u1")
	oracle.Grant("d1", "u2", access.RoleEditor)

	c1 := mockClient(hub, "u1", "Alice")
	c2 := mockClient(hub, "u2", "Bob")
	joinDoc(hub, c1, "d1")
	recvMsg(t, c1)
	joinDoc(hub, c2, "d1")
	recvMsg(t, c1)
	recvMsg(t, c2)

	sendFrame(hub, c2, ClientMessage{Type: MsgLeaveDocument, DocumentID: "d1"})

	msg := recvMsg(t, c1)
	if msg.Type != MsgUserLeft {
		t.Fatalf("expected user-left, got %q", msg.Type)
	}
	if msg.UserID != "u2" || msg.UserName != "Bob" {
		t.Errorf("unexpected identity: %s/%s", msg.UserID, msg.UserName)
	}
	if members := roomMembers(hub, "d1"); len(members) != 1 {
		t.Errorf("room has %d members, want 1", len(members))
	}
	// The leaver gets no user-left for itself.
	assertNoMsg(t, c2)
}

func TestHub_LeaveWhenNotMemberIsNoop(t *testing.T) {
	hub, _, _ := newTestHub()

	c := mockClient(hub, "u1", "Alice")
	sendFrame(hub, c, ClientMessage{Type: MsgLeaveDocument, DocumentID: "d1"})
	assertNoMsg(t, c)
}

func TestHub_DisconnectCleansUpLikeLeave(t *testing.T) {
	hub, oracle, st := newTestHub()
	oracle.SetOwner("d1", "u1")
	oracle.Grant("d1", "u2", access.RoleEditor)

	c1 := mockClient(hub, "u1", "Alice")
	c2 := mockClient(hub, "u2", "Bob")
	joinDoc(hub, c1, "d1")
	recvMsg(t, c1)
	joinDoc(hub, c2, "d1")
	recvMsg(t, c1)
	recvMsg(t, c2)

	// Network drop: no leave-document was ever sent.
	hub.events <- event{kind: evDisconnect, client: c1}

	msg := recvMsg(t, c2)
	if msg.Type != MsgUserLeft || msg.UserID != "u1" {
		t.Fatalf("expected user-left for u1, got %q/%q", msg.Type, msg.UserID)
	}
	assertNoMsg(t, c2)

	if members := roomMembers(hub, "d1"); len(members) != 1 || members[0] != c2.ID {
		t.Errorf("room members = %v, want only %s", members, c2.ID)
	}
	waitForMirrorRows(t, st, "d1", 1)
}

func TestHub_AllDisconnectedPrunesRoom(t *testing.T) {
	hub, oracle, st := newTestHub()
	oracle.SetOwner("d1", "u1")
	oracle.Grant("d1", "u2", access.RoleEditor)
	oracle.Grant("d1", "u3", access.RoleViewer)

	clients := []*Client{
		mockClient(hub, "u1", "Alice"),
		mockClient(hub, "u2", "Bob"),
		mockClient(hub, "u3", "Carol"),
	}
	for _, c := range clients {
		joinDoc(hub, c, "d1")
	}
	// Drain: each client gets one user-joined per join it witnessed.
	for i, c := range clients {
		for j := i; j < len(clients); j++ {
			recvMsg(t, c)
		}
	}

	// Disconnect in a different order than join.
	for _, i := range []int{1, 2, 0} {
		hub.events <- event{kind: evDisconnect, client: clients[i]}
	}

	deadline := time.Now().Add(2 * time.Second)
	for roomCount(hub) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("RoomCount = %d, want 0", roomCount(hub))
		}
		time.Sleep(10 * time.Millisecond)
	}
	waitForMirrorRows(t, st, "d1", 0)
}

func TestHub_JoinSecondDocumentLeavesFirst(t *testing.T) {
	hub, oracle, _ := newTestHub()
	oracle.SetOwner("d1", "u1")
	oracle.SetOwner("d2", "u1")
	oracle.Grant("d1", "u2", access.RoleViewer)

	a := mockClient(hub, "u1", "Alice")
	b := mockClient(hub, "u2", "Bob")
	joinDoc(hub, a, "d1")
	recvMsg(t, a)
	joinDoc(hub, b, "d1")
	recvMsg(t, a)
	recvMsg(t, b)

	// A joins d2 without leaving d1.
	joinDoc(hub, a, "d2")

	left := recvMsg(t, b)
	if left.Type != MsgUserLeft || left.UserID != "u1" {
		t.Fatalf("expected user-left for u1 in d1, got %q/%q", left.Type, left.UserID)
	}
	joined := recvMsg(t, a)
	if joined.Type != MsgUserJoined || len(joined.Users) != 1 {
		t.Fatalf("expected user-joined with 1 user, got %q with %d", joined.Type, len(joined.Users))
	}

	if members := roomMembers(hub, "d1"); len(members) != 1 || members[0] != b.ID {
		t.Errorf("d1 members = %v, want only %s", members, b.ID)
	}
	if members := roomMembers(hub, "d2"); len(members) != 1 || members[0] != a.ID {
		t.Errorf("d2 members = %v, want only %s", members, a.ID)
	}
}

func TestHub_MirrorRowLifecycle(t *testing.T) {
	hub, oracle, st := newTestHub()
	oracle.SetOwner("d1", "u1")

	c := mockClient(hub, "u1", "Alice")
	joinDoc(hub, c, "d1")
	recvMsg(t, c)

	rows := waitForMirrorRows(t, st, "d1", 1)
	if rows[0].ConnectionID != c.ID || rows[0].UserID != "u1" {
		t.Errorf("unexpected row: %+v", rows[0])
	}

	sendFrame(hub, c, ClientMessage{Type: MsgLeaveDocument, DocumentID: "d1"})
	waitForMirrorRows(t, st, "d1", 0)
}

func TestHub_Presence(t *testing.T) {
	hub, oracle, _ := newTestHub()
	oracle.SetOwner("d1", "u1")

	c := mockClient(hub, "u1", "Alice")
	joinDoc(hub, c, "d1")
	recvMsg(t, c)

	users := hub.Presence("d1")
	if len(users) != 1 || users[0].UserID != "u1" {
		t.Errorf("unexpected presence: %+v", users)
	}
	if users := hub.Presence("empty"); len(users) != 0 {
		t.Errorf("expected empty presence, got %+v", users)
	}
}

// waitForMirrorRows polls the mirror until the row count matches. Mirror
// writes are fire-and-forget, so tests cannot observe them synchronously.
func waitForMirrorRows(t *testing.T, st *store.MemoryStore, docID string, want int) []store.SessionRow {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err := st.ListSessions(context.Background(), docID)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) == want {
			return rows
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d mirror rows for %s, want %d", len(rows), docID, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
