package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Mock is an in-memory Gateway for tests. Failures are injected by setting
// the error fields; they apply to every call until cleared.
type Mock struct {
	mu sync.Mutex

	entities map[string]Canonical
	order    []string
	byIdem   map[string]string // idempotency key -> assigned id
	nextID   int

	CreateErr error
	UpdateErr error
	ListErr   error
	DeleteErr error

	CreateCalls int
	UpdateCalls int
	ListCalls   int
	DeleteCalls int
}

// NewMock creates an empty mock gateway
func NewMock() *Mock {
	return &Mock{
		entities: make(map[string]Canonical),
		byIdem:   make(map[string]string),
	}
}

// Seed inserts an entity server-side without going through Create
func (m *Mock) Seed(id, ownerKey string, payload json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		m.order = append(m.order, id)
	}
	m.entities[id] = Canonical{ID: id, OwnerKey: ownerKey, Payload: payload}
}

// Entity returns the server-side copy of an entity, if present
func (m *Mock) Entity(id string) (Canonical, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entities[id]
	return c, ok
}

// Len returns the number of entities the mock server holds
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

func (m *Mock) Create(ctx context.Context, idempotencyKey string, payload json.RawMessage) (*Canonical, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	// Server-side deduplication on the idempotency key
	if idempotencyKey != "" {
		if id, ok := m.byIdem[idempotencyKey]; ok {
			c := m.entities[id]
			return &c, nil
		}
	}

	m.nextID++
	id := fmt.Sprintf("srv-%d", m.nextID)
	canon := Canonical{ID: id, Payload: payload}
	m.entities[id] = canon
	m.order = append(m.order, id)
	if idempotencyKey != "" {
		m.byIdem[idempotencyKey] = id
	}
	return &canon, nil
}

func (m *Mock) Update(ctx context.Context, canonicalID string, payload json.RawMessage) (*Canonical, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++

	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}

	existing, ok := m.entities[canonicalID]
	if !ok {
		return nil, NewError("update", KindNotFound, "entity not found: "+canonicalID)
	}

	existing.Payload = payload
	m.entities[canonicalID] = existing
	return &existing, nil
}

func (m *Mock) List(ctx context.Context, filter ListFilter) ([]Canonical, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := make([]Canonical, 0, len(m.order))
	for _, id := range m.order {
		c, ok := m.entities[id]
		if !ok {
			continue
		}
		if filter.ProjectID != "" && c.OwnerKey != filter.ProjectID {
			continue
		}
		if filter.UserID != "" && c.OwnerKey != filter.UserID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Mock) Delete(ctx context.Context, canonicalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++

	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	if _, ok := m.entities[canonicalID]; !ok {
		return NewError("delete", KindNotFound, "entity not found: "+canonicalID)
	}
	delete(m.entities, canonicalID)
	return nil
}
