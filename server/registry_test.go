package server

import (
	"encoding/json"
	"testing"
)

func TestRegistry_JoinAndMembers(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "u1", "Alice", "d1")
	r.Join("c2", "u2", "Bob", "d1")

	members := r.Members("d1")
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if doc, ok := r.DocumentOf("c1"); !ok || doc != "d1" {
		t.Errorf("DocumentOf(c1) = %q, %v", doc, ok)
	}
}

func TestRegistry_SingleRoomInvariant(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "u1", "Alice", "d1")
	prev := r.Join("c1", "u1", "Alice", "d2")

	if prev != "d1" {
		t.Errorf("prev = %q, want %q", prev, "d1")
	}
	if r.HasRoom("d1") {
		t.Error("d1 should be pruned after its only member moved")
	}
	if len(r.Members("d2")) != 1 {
		t.Errorf("d2 has %d members, want 1", len(r.Members("d2")))
	}
	if doc, _ := r.DocumentOf("c1"); doc != "d2" {
		t.Errorf("DocumentOf(c1) = %q, want %q", doc, "d2")
	}
}

func TestRegistry_RejoinSameRoomResetsCursor(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "u1", "Alice", "d1")
	r.SetCursor("c1", json.RawMessage(`{"line":3}`))

	prev := r.Join("c1", "u1", "Alice", "d1")
	if prev != "" {
		t.Errorf("prev = %q, want empty", prev)
	}
	if r.sessions["c1"].Cursor != nil {
		t.Error("cursor should be null after rejoin")
	}
	if len(r.Members("d1")) != 1 {
		t.Errorf("d1 has %d members, want 1", len(r.Members("d1")))
	}
}

func TestRegistry_LeaveIdempotent(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Leave("ghost"); ok {
		t.Error("leaving an unknown connection should be a no-op")
	}

	r.Join("c1", "u1", "Alice", "d1")
	sess, ok := r.Leave("c1")
	if !ok || sess.DocumentID != "d1" {
		t.Fatalf("Leave(c1) = %+v, %v", sess, ok)
	}
	if _, ok := r.Leave("c1"); ok {
		t.Error("second leave should be a no-op")
	}
}

func TestRegistry_PrunesEmptyRooms(t *testing.T) {
	r := NewRegistry()

	for _, connID := range []string{"c1", "c2", "c3"} {
		r.Join(connID, "u-"+connID, "User "+connID, "d1")
	}
	// Leave in a different order than join.
	for _, connID := range []string{"c2", "c3", "c1"} {
		r.Leave(connID)
	}

	if r.RoomCount() != 0 {
		t.Errorf("RoomCount = %d, want 0", r.RoomCount())
	}
	if r.HasRoom("d1") {
		t.Error("d1 should be fully pruned")
	}
}

func TestRegistry_UsersCountsConnections(t *testing.T) {
	r := NewRegistry()

	// Same user, two tabs.
	r.Join("c1", "u1", "Alice", "d1")
	r.Join("c2", "u1", "Alice", "d1")

	users := r.Users("d1")
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2 (one per connection)", len(users))
	}
	for _, u := range users {
		if u.UserID != "u1" {
			t.Errorf("userId = %q, want %q", u.UserID, "u1")
		}
	}
}

func TestRegistry_SetCursor(t *testing.T) {
	r := NewRegistry()

	r.Join("c1", "u1", "Alice", "d1")
	pos := json.RawMessage(`{"index":42}`)
	r.SetCursor("c1", pos)

	if string(r.sessions["c1"].Cursor) != `{"index":42}` {
		t.Errorf("cursor = %s", r.sessions["c1"].Cursor)
	}

	// Unknown connection is a no-op.
	r.SetCursor("ghost", pos)
}
