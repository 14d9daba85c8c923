package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which kind of domain record a row holds
type EntityType string

const (
	TypeTask         EntityType = "task"
	TypeProject      EntityType = "project"
	TypeUser         EntityType = "user"
	TypeNotification EntityType = "notification"
)

// AllTypes returns every entity type the engine synchronizes
func AllTypes() []EntityType {
	return []EntityType{TypeTask, TypeProject, TypeUser, TypeNotification}
}

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case TypeTask, TypeProject, TypeUser, TypeNotification:
		return true
	}
	return false
}

// State is the sync lifecycle state of a record
type State string

const (
	// StatePending means the local payload has not been confirmed against the server
	StatePending State = "pending"
	// StateSynced means the payload equals the last value the server accepted
	StateSynced State = "synced"
	// StateDeleted is a tombstone: the record was deleted locally and the
	// deletion has not yet been acknowledged by the server
	StateDeleted State = "deleted"
)

// Record is one synchronizable entity as stored in the local cache.
// The payload is opaque to the engine; only identity, ownership and
// sync state are interpreted here.
type Record struct {
	Type        EntityType
	LocalKey    string
	CanonicalID string // empty until the first successful push
	OwnerKey    string // owning project/user reference, used for filtered queries
	Payload     json.RawMessage
	State       State
	MutatedAt   int64 // unix seconds of the last local mutation, ordering only
}

// NewRecord creates a pending record with a fresh local key
func NewRecord(t EntityType, payload json.RawMessage) Record {
	return Record{
		Type:      t,
		LocalKey:  uuid.NewString(),
		Payload:   payload,
		State:     StatePending,
		MutatedAt: time.Now().Unix(),
	}
}

// Touch marks the record as locally mutated and pending again
func (r *Record) Touch() {
	r.State = StatePending
	now := time.Now().Unix()
	if now <= r.MutatedAt {
		now = r.MutatedAt + 1
	}
	r.MutatedAt = now
}

// Filter narrows List and Subscribe results
type Filter struct {
	States   []State
	OwnerKey string
}
