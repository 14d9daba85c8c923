package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by point lookups when no record exists
var ErrNotFound = errors.New("record not found")

// Store is the durable local cache. It is the single source of truth for
// what consumers render and the only shared mutable resource of the engine.
// Writes to the same local key are serialized by SQLite; writes to different
// keys may run concurrently.
type Store struct {
	db *Database

	mu        sync.Mutex
	subs      map[int]*Subscription
	nextSubID int
}

// New creates a Store on top of an open database
func New(db *Database) *Store {
	return &Store{
		db:   db,
		subs: make(map[int]*Subscription),
	}
}

// Close closes all subscriptions and the underlying database
func (s *Store) Close() error {
	s.mu.Lock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Upsert inserts or replaces a record by (type, localKey).
// The last write for a given key wins at the storage layer.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if !rec.Type.Valid() {
		return fmt.Errorf("invalid entity type %q", rec.Type)
	}
	if rec.LocalKey == "" {
		return fmt.Errorf("record has no local key")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (entity_type, local_key, canonical_id, owner_key, payload, sync_state, mutated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, local_key) DO UPDATE SET
			canonical_id = excluded.canonical_id,
			owner_key = excluded.owner_key,
			payload = excluded.payload,
			sync_state = excluded.sync_state,
			mutated_at = excluded.mutated_at
	`,
		string(rec.Type),
		rec.LocalKey,
		nullString(rec.CanonicalID),
		nullString(rec.OwnerKey),
		string(rec.Payload),
		string(rec.State),
		rec.MutatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s/%s: %w", rec.Type, rec.LocalKey, err)
	}

	s.notify(rec.Type)
	return nil
}

// Get returns the record for a local key, or ErrNotFound
func (s *Store) Get(ctx context.Context, t EntityType, localKey string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, local_key, canonical_id, owner_key, payload, sync_state, mutated_at
		FROM records WHERE entity_type = ? AND local_key = ?
	`, string(t), localKey)
	return scanRecord(row)
}

// GetByCanonicalID returns the record carrying a server-assigned ID, or ErrNotFound.
// Pull cycles key exclusively on this lookup so records without a canonical ID
// can never be touched by a cache refresh.
func (s *Store) GetByCanonicalID(ctx context.Context, t EntityType, canonicalID string) (*Record, error) {
	if canonicalID == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, local_key, canonical_id, owner_key, payload, sync_state, mutated_at
		FROM records WHERE entity_type = ? AND canonical_id = ?
	`, string(t), canonicalID)
	return scanRecord(row)
}

// QueryPending returns all records awaiting a push (pending mutations and
// tombstones), oldest mutation first. The result is a snapshot: mutations
// arriving afterwards are picked up by the next cycle.
func (s *Store) QueryPending(ctx context.Context, t EntityType) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT entity_type, local_key, canonical_id, owner_key, payload, sync_state, mutated_at
		FROM records
		WHERE entity_type = ? AND sync_state IN ('pending', 'deleted')
		ORDER BY mutated_at ASC
	`, string(t))
}

// List returns all records of a type matching the filter
func (s *Store) List(ctx context.Context, t EntityType, f Filter) ([]Record, error) {
	query := `
		SELECT entity_type, local_key, canonical_id, owner_key, payload, sync_state, mutated_at
		FROM records WHERE entity_type = ?`
	args := []interface{}{string(t)}

	if f.OwnerKey != "" {
		query += " AND owner_key = ?"
		args = append(args, f.OwnerKey)
	}
	if len(f.States) > 0 {
		placeholders := make([]string, len(f.States))
		for i, st := range f.States {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += " AND sync_state IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY mutated_at ASC"

	return s.queryRecords(ctx, query, args...)
}

// MarkSynced records a successful push: the canonical ID is assigned
// unconditionally, but payload and state only transition to synced if the
// record has not been mutated since the pushed snapshot was taken. A record
// re-edited mid-push keeps its newer pending payload and is retried next
// cycle under the canonical ID it now carries.
//
// If another row of the same type already holds the canonical ID, it is a
// cache copy imported by a pull that ran before this record carried the ID
// (a create whose acknowledgement was lost). That copy is absorbed in the
// same transaction so the pushing record can adopt the ID.
func (s *Store) MarkSynced(ctx context.Context, t EntityType, localKey, canonicalID string, payload json.RawMessage, snapshotMutatedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM records
		WHERE entity_type = ? AND canonical_id = ? AND local_key != ?
	`, string(t), canonicalID, localKey)
	if err != nil {
		return fmt.Errorf("failed to absorb cache copy for canonical id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET canonical_id = ?
		WHERE entity_type = ? AND local_key = ?
	`, canonicalID, string(t), localKey)
	if err != nil {
		return fmt.Errorf("failed to assign canonical id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET payload = ?, sync_state = 'synced'
		WHERE entity_type = ? AND local_key = ? AND mutated_at = ?
	`, string(payload), string(t), localKey, snapshotMutatedAt)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync state: %w", err)
	}

	s.notify(t)
	return nil
}

// MarkDeleted turns a record into a pending tombstone so the deletion itself
// can be pushed and retried like any other mutation
func (s *Store) MarkDeleted(ctx context.Context, t EntityType, localKey string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET sync_state = 'deleted', mutated_at = ?
		WHERE entity_type = ? AND local_key = ?
	`, time.Now().Unix(), string(t), localKey)
	if err != nil {
		return fmt.Errorf("failed to mark record deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.notify(t)
	return nil
}

// Remove hard-deletes a record. Only the engine calls this, after the server
// acknowledged the deletion (or the record never reached the server).
func (s *Store) Remove(ctx context.Context, t EntityType, localKey string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE entity_type = ? AND local_key = ?
	`, string(t), localKey)
	if err != nil {
		return fmt.Errorf("failed to remove record %s/%s: %w", t, localKey, err)
	}

	s.notify(t)
	return nil
}

// Stats holds per-type cache statistics
type Stats struct {
	Total   int
	Pending int
	Deleted int
}

// Stats returns cache statistics for one entity type
func (s *Store) Stats(ctx context.Context, t EntityType) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN sync_state = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sync_state = 'deleted' THEN 1 ELSE 0 END), 0)
		FROM records WHERE entity_type = ?
	`, string(t)).Scan(&st.Total, &st.Pending, &st.Deleted)
	if err != nil {
		return st, fmt.Errorf("failed to collect stats: %w", err)
	}
	return st, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row *sql.Row) (*Record, error) {
	rec, err := scanRecordRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func scanRecordRow(row rowScanner) (Record, error) {
	var (
		rec         Record
		entityType  string
		canonicalID sql.NullString
		ownerKey    sql.NullString
		payload     string
		state       string
	)
	err := row.Scan(&entityType, &rec.LocalKey, &canonicalID, &ownerKey, &payload, &state, &rec.MutatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}
	rec.Type = EntityType(entityType)
	rec.CanonicalID = canonicalID.String
	rec.OwnerKey = ownerKey.String
	rec.Payload = json.RawMessage(payload)
	rec.State = State(state)
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
