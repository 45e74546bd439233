// Package server implements the real-time collaboration coordinator: it
// authenticates live WebSocket connections, tracks which users are present
// on which document, fans out edit and cursor events to room peers, and
// reconciles that ephemeral state with durable storage.
//
// All presence state lives in one Hub instance; there are no package-level
// maps, so tests can run independent coordinators side by side. Fanning out
// room events across multiple coordinator processes would need an external
// publish/subscribe backplane and is not supported.
package server
