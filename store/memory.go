package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of DocumentStore and
// SessionStore.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]*DocumentInfo
	sessions map[string]SessionRow // keyed by connection id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]*DocumentInfo),
		sessions: make(map[string]SessionRow),
	}
}

func (s *MemoryStore) Create(_ context.Context, id, ownerID, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; exists {
		return fmt.Errorf("document %q already exists", id)
	}
	now := time.Now()
	s.docs[id] = &DocumentInfo{
		ID:        id,
		Title:     title,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %q not found", id)
	}
	info := *doc
	return &info, nil
}

func (s *MemoryStore) List(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]DocumentInfo, 0, len(s.docs))
	for _, doc := range s.docs {
		result = append(result, *doc)
	}
	return result, nil
}

func (s *MemoryStore) UpdateContent(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %q not found", id)
	}
	doc.Content = content
	doc.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, id string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return time.Time{}, fmt.Errorf("document %q not found", id)
	}
	now := time.Now()
	doc.LastSavedAt = now
	return now, nil
}

func (s *MemoryStore) PutSession(_ context.Context, row SessionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[row.ConnectionID] = row
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connectionID)
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context, documentID string) ([]SessionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []SessionRow
	for _, row := range s.sessions {
		if row.DocumentID == documentID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *MemoryStore) PurgeSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]SessionRow)
	return nil
}
