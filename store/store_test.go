package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	s := New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func payload(t *testing.T, title string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	return data
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "buy milk"))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := s.Get(ctx, TypeTask, rec.LocalKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != StatePending {
		t.Errorf("Expected state pending, got %s", got.State)
	}
	if got.CanonicalID != "" {
		t.Errorf("Expected empty canonical id, got %q", got.CanonicalID)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("Payload mismatch: got %s, want %s", got.Payload, rec.Payload)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), TypeTask, "no-such-key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// Upserting the same record twice must leave the store in the same
// observable state as a single upsert: no duplicates, same row.
func TestUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "buy milk"))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	all, err := s.List(ctx, TypeTask, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 record after double upsert, got %d", len(all))
	}
	if all[0].LocalKey != rec.LocalKey {
		t.Errorf("Expected local key %s, got %s", rec.LocalKey, all[0].LocalKey)
	}
}

func TestUpsertReplacesByLocalKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "draft"))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec.Payload = payload(t, "final")
	rec.Touch()
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Replacing upsert failed: %v", err)
	}

	got, err := s.Get(ctx, TypeTask, rec.LocalKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("Expected replaced payload, got %s", got.Payload)
	}
	if got.State != StatePending {
		t.Errorf("Expected pending after touch, got %s", got.State)
	}
}

func TestQueryPendingIncludesTombstonesOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := NewRecord(TypeTask, payload(t, "first"))
	first.MutatedAt = 100
	second := NewRecord(TypeTask, payload(t, "second"))
	second.MutatedAt = 200
	synced := NewRecord(TypeTask, payload(t, "done already"))
	synced.CanonicalID = "srv-9"
	synced.State = StateSynced

	for _, rec := range []Record{second, synced, first} {
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := s.MarkDeleted(ctx, TypeTask, second.LocalKey); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	pending, err := s.QueryPending(ctx, TypeTask)
	if err != nil {
		t.Fatalf("QueryPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending records, got %d", len(pending))
	}
	if pending[0].LocalKey != first.LocalKey {
		t.Errorf("Expected oldest mutation first, got %s", pending[0].LocalKey)
	}
	if pending[1].State != StateDeleted {
		t.Errorf("Expected tombstone in pending set, got state %s", pending[1].State)
	}
}

func TestGetByCanonicalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeProject, payload(t, "apollo"))
	rec.CanonicalID = "srv-42"
	rec.State = StateSynced
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := s.GetByCanonicalID(ctx, TypeProject, "srv-42")
	if err != nil {
		t.Fatalf("GetByCanonicalID failed: %v", err)
	}
	if got.LocalKey != rec.LocalKey {
		t.Errorf("Expected local key %s, got %s", rec.LocalKey, got.LocalKey)
	}

	if _, err := s.GetByCanonicalID(ctx, TypeProject, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty canonical id, got %v", err)
	}
	if _, err := s.GetByCanonicalID(ctx, TypeTask, "srv-42"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound across types, got %v", err)
	}
}

func TestMarkSyncedAssignsCanonicalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "push me"))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	serverPayload := payload(t, "push me")
	if err := s.MarkSynced(ctx, TypeTask, rec.LocalKey, "srv-1", serverPayload, rec.MutatedAt); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	got, err := s.Get(ctx, TypeTask, rec.LocalKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != StateSynced {
		t.Errorf("Expected synced, got %s", got.State)
	}
	if got.CanonicalID != "srv-1" {
		t.Errorf("Expected canonical id srv-1, got %q", got.CanonicalID)
	}
}

// A record re-edited while its push was in flight must keep the newer
// pending payload, but still record the canonical ID so the retry becomes
// an update instead of a duplicate create.
func TestMarkSyncedDoesNotClobberNewerMutation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "v1"))
	rec.MutatedAt = 100
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Local edit lands while the push for MutatedAt=100 is in flight
	rec.Payload = payload(t, "v2")
	rec.MutatedAt = 200
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Edit upsert failed: %v", err)
	}

	if err := s.MarkSynced(ctx, TypeTask, rec.LocalKey, "srv-1", payload(t, "v1"), 100); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	got, err := s.Get(ctx, TypeTask, rec.LocalKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != StatePending {
		t.Errorf("Expected record to stay pending, got %s", got.State)
	}
	if string(got.Payload) != string(payload(t, "v2")) {
		t.Errorf("Expected newer payload preserved, got %s", got.Payload)
	}
	if got.CanonicalID != "srv-1" {
		t.Errorf("Expected canonical id recorded anyway, got %q", got.CanonicalID)
	}
}

// After a create whose acknowledgement was lost, a pull can import the
// server-side copy as its own row before the pushing record carries the
// canonical ID. Adopting the ID must absorb that copy instead of tripping
// the unique canonical_id index.
func TestMarkSyncedAbsorbsPulledCacheCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pending := NewRecord(TypeTask, payload(t, "local original"))
	if err := s.Upsert(ctx, pending); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	imported := NewRecord(TypeTask, payload(t, "server copy"))
	imported.CanonicalID = "srv-1"
	imported.State = StateSynced
	if err := s.Upsert(ctx, imported); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := s.MarkSynced(ctx, TypeTask, pending.LocalKey, "srv-1", payload(t, "local original"), pending.MutatedAt); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	all, err := s.List(ctx, TypeTask, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected the cache copy absorbed, got %d rows", len(all))
	}
	if all[0].LocalKey != pending.LocalKey {
		t.Errorf("Expected the pushing record to survive, got %s", all[0].LocalKey)
	}
	if all[0].CanonicalID != "srv-1" || all[0].State != StateSynced {
		t.Errorf("Expected adopted canonical id and synced state, got %+v", all[0])
	}
}

func TestMarkDeletedMissingRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.MarkDeleted(context.Background(), TypeTask, "no-such-key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := NewRecord(TypeTask, payload(t, "gone"))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Remove(ctx, TypeTask, rec.LocalKey); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get(ctx, TypeTask, rec.LocalKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}
}

func TestListFiltersByOwnerAndState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inProject := NewRecord(TypeTask, payload(t, "in project"))
	inProject.OwnerKey = "proj-1"
	other := NewRecord(TypeTask, payload(t, "elsewhere"))
	other.OwnerKey = "proj-2"
	syncedRec := NewRecord(TypeTask, payload(t, "synced"))
	syncedRec.OwnerKey = "proj-1"
	syncedRec.CanonicalID = "srv-5"
	syncedRec.State = StateSynced

	for _, rec := range []Record{inProject, other, syncedRec} {
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := s.List(ctx, TypeTask, Filter{OwnerKey: "proj-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 records for proj-1, got %d", len(got))
	}

	got, err = s.List(ctx, TypeTask, Filter{OwnerKey: "proj-1", States: []State{StateSynced}})
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(got) != 1 || got[0].LocalKey != syncedRec.LocalKey {
		t.Errorf("Expected only the synced record, got %d records", len(got))
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := NewRecord(TypeTask, payload(t, "a"))
	b := NewRecord(TypeTask, payload(t, "b"))
	c := NewRecord(TypeTask, payload(t, "c"))
	c.CanonicalID = "srv-1"
	c.State = StateSynced

	for _, rec := range []Record{a, b, c} {
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := s.MarkDeleted(ctx, TypeTask, b.LocalKey); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	stats, err := s.Stats(ctx, TypeTask)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Deleted != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestInvalidEntityTypeRejected(t *testing.T) {
	s := newTestStore(t)

	rec := NewRecord("widget", payload(t, "nope"))
	if err := s.Upsert(context.Background(), rec); err == nil {
		t.Error("Expected error for invalid entity type")
	}
}
