package server

import (
	"context"
	"log"
	"time"
)

// Change relay: edit and cursor fan-out plus the explicit save checkpoint.
// Events referencing a document the connection is not joined to are dropped
// silently, so stale clients learn nothing about rooms they left.

func (h *Hub) handleTextChange(c *Client, msg ClientMessage) {
	docID, ok := h.registry.DocumentOf(c.ID)
	if !ok || docID != msg.DocumentID {
		return
	}

	// The sender already applied the edit locally; everyone else gets the
	// delta. Interleaved deltas from concurrent authors are not reconciled;
	// the last content snapshot committed to the store wins.
	h.broadcastExcept(docID, c.ID, ServerMessage{
		Type:     MsgTextChange,
		Delta:    msg.Delta,
		UserID:   c.UserID,
		UserName: c.Name,
	})

	// Fire and forget: no retry, no cancellation. Completion order never
	// affects broadcast order.
	go func() {
		if err := h.docs.UpdateContent(context.Background(), docID, msg.Content); err != nil {
			log.Printf("hub: persist content for document %s: %v", docID, err)
		}
	}()
}

func (h *Hub) handleCursorMove(c *Client, msg ClientMessage) {
	docID, ok := h.registry.DocumentOf(c.ID)
	if !ok || docID != msg.DocumentID {
		return
	}

	// Ephemeral: never persisted. A fresh connection starts with a null
	// position until its next move.
	h.registry.SetCursor(c.ID, msg.Position)

	h.broadcastExcept(docID, c.ID, ServerMessage{
		Type:     MsgCursorMove,
		UserID:   c.UserID,
		UserName: c.Name,
		Position: msg.Position,
	})
}

// startSave records the checkpoint off the loop and feeds the result back
// in, like startJoin.
func (h *Hub) startSave(c *Client, docID string) {
	cur, ok := h.registry.DocumentOf(c.ID)
	if !ok || cur != docID {
		return
	}
	go func() {
		savedAt, err := h.docs.Touch(context.Background(), docID)
		h.events <- event{kind: evSaveDone, client: c, docID: docID, savedAt: savedAt, err: err}
	}()
}

func (h *Hub) completeSave(ev event) {
	c := ev.client
	if _, live := h.clients[c.ID]; !live {
		return
	}
	if ev.err != nil {
		// Explicit operation: the failure is surfaced to the requester. The
		// connection stays open.
		log.Printf("hub: save checkpoint for document %s: %v", ev.docID, ev.err)
		c.sendError("Failed to save document")
		return
	}

	c.sendMsg(ServerMessage{
		Type:      MsgDocumentSaved,
		Timestamp: ev.savedAt.UTC().Format(time.RFC3339),
	})

	// Refresh hint: the rest of the room may re-fetch authoritative content.
	if cur, ok := h.registry.DocumentOf(c.ID); ok && cur == ev.docID {
		h.broadcastExcept(ev.docID, c.ID, ServerMessage{
			Type:       MsgDocumentUpdated,
			DocumentID: ev.docID,
		})
	}
}
