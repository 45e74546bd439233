package server

import (
	"encoding/json"
)

// Message types exchanged over WebSocket.
const (
	// Client to server.
	MsgJoinDocument  = "join-document"
	MsgLeaveDocument = "leave-document"
	MsgTextChange    = "text-change"
	MsgCursorMove    = "cursor-move"
	MsgDocumentSave  = "document-save"

	// Server to client. MsgTextChange and MsgCursorMove flow both ways.
	MsgUserJoined      = "user-joined"
	MsgUserLeft        = "user-left"
	MsgDocumentSaved   = "document-saved"
	MsgDocumentUpdated = "document-updated"
	MsgError           = "error"
)

// ClientMessage is a message from client to server. Delta and Position are
// opaque to the coordinator and relayed untouched.
type ClientMessage struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	Delta      json.RawMessage `json:"delta,omitempty"`
	Content    string          `json:"content,omitempty"`
	Position   json.RawMessage `json:"position,omitempty"`
}

// UserInfo describes one room member.
type UserInfo struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// ServerMessage is a message from server to client.
type ServerMessage struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	UserName   string          `json:"userName,omitempty"`
	Delta      json.RawMessage `json:"delta,omitempty"`
	Position   json.RawMessage `json:"position,omitempty"`
	Users      []UserInfo      `json:"users,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
