package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rahulanurag9630/collaborative-text-editor/access"
	"github.com/rahulanurag9630/collaborative-text-editor/store"
)

type eventKind int

const (
	evRegister eventKind = iota
	evFrame
	evJoinChecked
	evSaveDone
	evDisconnect
	evInspect
)

// event is one unit of work for the hub's run loop.
type event struct {
	kind   eventKind
	client *Client
	msg    ClientMessage

	// evJoinChecked
	docID   string
	allowed bool
	err     error

	// evSaveDone
	savedAt time.Time

	// evInspect
	fn func()
}

// Hub is the session coordinator. It owns the presence registry and the set
// of live connections; every registry mutation happens on the single Run
// goroutine, so handlers never observe a half-updated registry. Durable I/O
// (access checks, persistence writes) runs off the loop and feeds results
// back in as events.
type Hub struct {
	oracle access.Oracle
	docs   store.DocumentStore
	mirror store.SessionStore

	registry *Registry
	clients  map[string]*Client // live connections by connection id

	events chan event
}

func NewHub(oracle access.Oracle, docs store.DocumentStore, mirror store.SessionStore) *Hub {
	return &Hub{
		oracle:   oracle,
		docs:     docs,
		mirror:   mirror,
		registry: NewRegistry(),
		clients:  make(map[string]*Client),
		events:   make(chan event, 256),
	}
}

// Run is the hub's main loop. It serializes all presence mutations.
func (h *Hub) Run() {
	for ev := range h.events {
		switch ev.kind {
		case evRegister:
			h.clients[ev.client.ID] = ev.client
		case evFrame:
			h.handleFrame(ev.client, ev.msg)
		case evJoinChecked:
			h.completeJoin(ev)
		case evSaveDone:
			h.completeSave(ev)
		case evDisconnect:
			h.handleDisconnect(ev.client)
		case evInspect:
			ev.fn()
		}
	}
}

// Register adds an authenticated connection to the live set.
func (h *Hub) Register(c *Client) {
	h.events <- event{kind: evRegister, client: c}
}

func (h *Hub) handleFrame(c *Client, msg ClientMessage) {
	switch msg.Type {
	case MsgJoinDocument:
		h.startJoin(c, msg.DocumentID)
	case MsgLeaveDocument:
		h.handleLeave(c, msg.DocumentID)
	case MsgTextChange:
		h.handleTextChange(c, msg)
	case MsgCursorMove:
		h.handleCursorMove(c, msg)
	case MsgDocumentSave:
		h.startSave(c, msg.DocumentID)
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// startJoin runs the access check off the loop, so a slow oracle stalls
// only this join attempt, then feeds the verdict back in for the registry
// mutation.
func (h *Hub) startJoin(c *Client, docID string) {
	if docID == "" {
		c.sendError("documentId required")
		return
	}
	go func() {
		allowed, err := access.CanJoin(context.Background(), h.oracle, docID, c.UserID)
		h.events <- event{kind: evJoinChecked, client: c, docID: docID, allowed: allowed, err: err}
	}()
}

func (h *Hub) completeJoin(ev event) {
	c := ev.client
	if _, live := h.clients[c.ID]; !live {
		// Disconnected while the access check was in flight.
		return
	}
	if ev.err != nil {
		if errors.Is(ev.err, access.ErrDocumentNotFound) {
			c.sendError("Document not found")
			return
		}
		log.Printf("hub: access check for document %s: %v", ev.docID, ev.err)
		c.sendError("Failed to join document")
		return
	}
	if !ev.allowed {
		c.sendError("Access denied")
		return
	}

	// Joining while joined elsewhere leaves the old room first. The mirror
	// row is keyed by connection id, so the insert below replaces it.
	if prev := h.registry.Join(c.ID, c.UserID, c.Name, ev.docID); prev != "" {
		h.broadcast(prev, ServerMessage{
			Type:     MsgUserLeft,
			UserID:   c.UserID,
			UserName: c.Name,
		})
	}

	go h.putMirrorRow(store.SessionRow{
		DocumentID:   ev.docID,
		UserID:       c.UserID,
		ConnectionID: c.ID,
	})

	// Everyone in the room, the joiner included, gets the full membership
	// snapshot rather than an incremental update.
	h.broadcast(ev.docID, ServerMessage{
		Type:     MsgUserJoined,
		UserID:   c.UserID,
		UserName: c.Name,
		Users:    h.registry.Users(ev.docID),
	})

	log.Printf("hub: user %s joined document %s", c.Name, ev.docID)
}

func (h *Hub) handleLeave(c *Client, docID string) {
	cur, ok := h.registry.DocumentOf(c.ID)
	if !ok || (docID != "" && cur != docID) {
		// Not a member: no-op.
		return
	}
	h.removePresence(c)
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, live := h.clients[c.ID]; !live {
		return
	}
	delete(h.clients, c.ID)
	h.removePresence(c)
	close(c.send)
	log.Printf("hub: user %s disconnected (%s)", c.Name, c.ID)
}

// removePresence clears the connection from the registry and the mirror and
// notifies the remaining room members.
func (h *Hub) removePresence(c *Client) {
	sess, ok := h.registry.Leave(c.ID)
	if !ok {
		return
	}
	go h.deleteMirrorRow(c.ID)
	h.broadcast(sess.DocumentID, ServerMessage{
		Type:     MsgUserLeft,
		UserID:   sess.UserID,
		UserName: sess.UserName,
	})
	log.Printf("hub: user %s left document %s", sess.UserName, sess.DocumentID)
}

// broadcast sends to every member of the room.
func (h *Hub) broadcast(docID string, msg ServerMessage) {
	data := msg.Encode()
	for _, connID := range h.registry.Members(docID) {
		if c, ok := h.clients[connID]; ok {
			c.enqueue(data)
		}
	}
}

// broadcastExcept sends to every room member except the given connection.
func (h *Hub) broadcastExcept(docID, exceptConnID string, msg ServerMessage) {
	data := msg.Encode()
	for _, connID := range h.registry.Members(docID) {
		if connID == exceptConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			c.enqueue(data)
		}
	}
}

// Mirror writes are best effort: failures are logged, never surfaced, and
// never block the loop.
func (h *Hub) putMirrorRow(row store.SessionRow) {
	if err := h.mirror.PutSession(context.Background(), row); err != nil {
		log.Printf("hub: mirror insert for connection %s: %v", row.ConnectionID, err)
	}
}

func (h *Hub) deleteMirrorRow(connID string) {
	if err := h.mirror.DeleteSession(context.Background(), connID); err != nil {
		log.Printf("hub: mirror delete for connection %s: %v", connID, err)
	}
}

// Presence returns the membership snapshot for a document. The query runs
// on the hub's loop, so it observes a consistent registry.
func (h *Hub) Presence(docID string) []UserInfo {
	var users []UserInfo
	h.inspect(func(r *Registry) {
		users = r.Users(docID)
	})
	return users
}

// inspect runs fn on the hub's loop and waits for it to finish. Must not be
// called from the loop itself.
func (h *Hub) inspect(fn func(r *Registry)) {
	done := make(chan struct{})
	h.events <- event{kind: evInspect, fn: func() {
		fn(h.registry)
		close(done)
	}}
	<-done
}
