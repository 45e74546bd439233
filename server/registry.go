package server

import (
	"encoding/json"
)

// connSession is the live state for one connection while joined to a
// document.
type connSession struct {
	ConnectionID string
	UserID       string
	UserName     string
	DocumentID   string
	Cursor       json.RawMessage
}

// Registry is the presence index: which connections are in which document
// room, and the per-connection session state. It is owned by a single Hub
// and mutated only from the hub's run loop, so it carries no lock.
//
// Invariants: a document id is a key in rooms iff its member set is
// non-empty, and a connection id appears under at most one document.
type Registry struct {
	rooms    map[string]map[string]struct{} // document id -> connection ids
	sessions map[string]*connSession        // connection id -> session
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]*connSession),
	}
}

// Join adds the connection to the document's room, creating or replacing
// its session with a null cursor. If the connection was joined to a
// different document, it leaves that room first; the previous document id
// is returned so the caller can notify its remaining members.
func (r *Registry) Join(connID, userID, userName, docID string) (prev string) {
	if s, ok := r.sessions[connID]; ok && s.DocumentID != docID {
		prev = s.DocumentID
		r.removeFromRoom(connID, prev)
	}
	r.sessions[connID] = &connSession{
		ConnectionID: connID,
		UserID:       userID,
		UserName:     userName,
		DocumentID:   docID,
	}
	if r.rooms[docID] == nil {
		r.rooms[docID] = make(map[string]struct{})
	}
	r.rooms[docID][connID] = struct{}{}
	return prev
}

// Leave removes the connection entirely. Idempotent: removing a connection
// that is not a member is a no-op.
func (r *Registry) Leave(connID string) (*connSession, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, connID)
	r.removeFromRoom(connID, s.DocumentID)
	return s, true
}

func (r *Registry) removeFromRoom(connID, docID string) {
	set := r.rooms[docID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.rooms, docID)
	}
}

// DocumentOf returns the document the connection is joined to.
func (r *Registry) DocumentOf(connID string) (string, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return "", false
	}
	return s.DocumentID, true
}

// SetCursor updates the connection's last known cursor position.
func (r *Registry) SetCursor(connID string, position json.RawMessage) {
	if s, ok := r.sessions[connID]; ok {
		s.Cursor = position
	}
}

// Members returns the connection ids currently in the room.
func (r *Registry) Members(docID string) []string {
	set := r.rooms[docID]
	members := make([]string, 0, len(set))
	for connID := range set {
		members = append(members, connID)
	}
	return members
}

// Users returns the membership snapshot for the room. Presence counts
// connections, not distinct users: the same user id may appear more than
// once when a user holds several connections.
func (r *Registry) Users(docID string) []UserInfo {
	set := r.rooms[docID]
	users := make([]UserInfo, 0, len(set))
	for connID := range set {
		if s, ok := r.sessions[connID]; ok {
			users = append(users, UserInfo{UserID: s.UserID, UserName: s.UserName})
		}
	}
	return users
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// HasRoom reports whether the document has any members.
func (r *Registry) HasRoom(docID string) bool {
	_, ok := r.rooms[docID]
	return ok
}
