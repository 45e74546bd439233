package access

import (
	"context"
	"sync"
)

// MemoryOracle is an in-memory Oracle for tests and local development.
type MemoryOracle struct {
	mu     sync.RWMutex
	owners map[string]string          // documentID -> owner userID
	grants map[string]map[string]Role // documentID -> userID -> role
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		owners: make(map[string]string),
		grants: make(map[string]map[string]Role),
	}
}

func (o *MemoryOracle) SetOwner(documentID, userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owners[documentID] = userID
}

func (o *MemoryOracle) Grant(documentID, userID string, role Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.grants[documentID] == nil {
		o.grants[documentID] = make(map[string]Role)
	}
	o.grants[documentID][userID] = role
}

func (o *MemoryOracle) OwnerOf(_ context.Context, documentID string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	owner, ok := o.owners[documentID]
	if !ok {
		return "", ErrDocumentNotFound
	}
	return owner, nil
}

func (o *MemoryOracle) RoleOf(_ context.Context, documentID, userID string) (Role, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	role, ok := o.grants[documentID][userID]
	if !ok {
		return "", ErrNoGrant
	}
	return role, nil
}
