package remote

import (
	"context"
	"encoding/json"
)

// Canonical is a server-acknowledged entity: the authoritative payload plus
// the identifier the server assigned to it.
type Canonical struct {
	ID       string
	OwnerKey string // owning project/user reference extracted from the wire form
	Payload  json.RawMessage
}

// ListFilter narrows a pull to a server-side subset
type ListFilter struct {
	ProjectID string
	UserID    string
}

// Gateway is the sole network boundary of the sync engine, one per entity
// type. Payloads are opaque to the caller; each implementation maps them to
// and from its wire format. No operation is assumed idempotent by the engine;
// Create accepts an idempotency key derived from the record's local key so
// the server can deduplicate retried creates.
type Gateway interface {
	Create(ctx context.Context, idempotencyKey string, payload json.RawMessage) (*Canonical, error)
	Update(ctx context.Context, canonicalID string, payload json.RawMessage) (*Canonical, error)
	List(ctx context.Context, filter ListFilter) ([]Canonical, error)
	Delete(ctx context.Context, canonicalID string) error
}
