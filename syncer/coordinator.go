package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tracksync/remote"
	"tracksync/store"
)

// DefaultWorkers bounds concurrent per-record pushes within one cycle
const DefaultWorkers = 4

// ErrCycleInFlight is returned when a cycle for the same entity type is
// already running. Cycles for different types run in parallel; two cycles
// for one type never do, so a pending record can't be created twice.
var ErrCycleInFlight = errors.New("sync cycle already in flight for this entity type")

// ErrUnauthorized is returned when the remote rejected the session. The
// cycle is aborted and the auth collaborator has been notified.
var ErrUnauthorized = errors.New("session rejected by remote")

// AuthInvalidator is the auth collaborator contract: called when the remote
// reports the session is no longer valid.
type AuthInvalidator interface {
	InvalidateSession()
}

// Failure describes one record that could not be pushed this cycle
type Failure struct {
	LocalKey string
	Err      error
}

// Report summarizes one push+pull cycle for an entity type
type Report struct {
	Type      store.EntityType
	Succeeded []string // local keys pushed successfully
	Failed    []Failure
	Pulled    int   // records refreshed from the server
	PullErr   error // pull phase failure, nil if the pull succeeded
	Duration  time.Duration
}

// Coordinator drives synchronization between the local store and the remote
// gateways. It is stateless between invocations except for what is persisted
// in the store.
type Coordinator struct {
	store    *store.Store
	gateways map[store.EntityType]remote.Gateway
	auth     AuthInvalidator
	workers  int

	mu       sync.Mutex
	inflight map[store.EntityType]*atomic.Bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithWorkers sets the per-cycle push concurrency bound
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a coordinator over the given store and per-type gateways
func New(st *store.Store, gateways map[store.EntityType]remote.Gateway, auth AuthInvalidator, opts ...Option) (*Coordinator, error) {
	if st == nil || auth == nil {
		return nil, fmt.Errorf("store and auth collaborator are required")
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one gateway is required")
	}
	for t := range gateways {
		if !t.Valid() {
			return nil, fmt.Errorf("invalid entity type %q", t)
		}
	}

	c := &Coordinator{
		store:    st,
		gateways: gateways,
		auth:     auth,
		workers:  DefaultWorkers,
		inflight: make(map[store.EntityType]*atomic.Bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Types returns the entity types this coordinator synchronizes
func (c *Coordinator) Types() []store.EntityType {
	types := make([]store.EntityType, 0, len(c.gateways))
	for _, t := range store.AllTypes() {
		if _, ok := c.gateways[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// SyncType runs one push-then-pull cycle for a single entity type.
// Per-record push failures never abort the cycle; they are accumulated in
// the report. Unauthorized aborts the cycle, invalidates the session and
// returns ErrUnauthorized. Local storage failures are fatal to the cycle.
func (c *Coordinator) SyncType(ctx context.Context, t store.EntityType) (*Report, error) {
	gw, ok := c.gateways[t]
	if !ok {
		return nil, fmt.Errorf("no gateway configured for entity type %q", t)
	}

	flag := c.inflightFlag(t)
	if !flag.CompareAndSwap(false, true) {
		return nil, ErrCycleInFlight
	}
	defer flag.Store(false)

	start := time.Now()
	report := &Report{Type: t}

	if err := c.push(ctx, t, gw, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	if err := c.pull(ctx, t, gw, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	return report, nil
}

// SyncAll runs cycles for every configured type, fully in parallel
func (c *Coordinator) SyncAll(ctx context.Context) ([]*Report, error) {
	types := c.Types()
	reports := make([]*Report, len(types))
	errs := make([]error, len(types))

	var wg sync.WaitGroup
	for i, t := range types {
		wg.Add(1)
		go func(i int, t store.EntityType) {
			defer wg.Done()
			reports[i], errs[i] = c.SyncType(ctx, t)
		}(i, t)
	}
	wg.Wait()

	return reports, errors.Join(errs...)
}

func (c *Coordinator) inflightFlag(t store.EntityType) *atomic.Bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	flag, ok := c.inflight[t]
	if !ok {
		flag = &atomic.Bool{}
		c.inflight[t] = flag
	}
	return flag
}

// push sends every pending mutation to the remote. The pending set is read
// once as a snapshot; records mutated afterwards are handled next cycle.
// Per-record pushes run concurrently under a bounded pool.
func (c *Coordinator) push(ctx context.Context, t store.EntityType, gw remote.Gateway, report *Report) error {
	pending, err := c.store.QueryPending(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to read pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			err := c.pushOne(gctx, gw, rec)
			if err == nil {
				mu.Lock()
				report.Succeeded = append(report.Succeeded, rec.LocalKey)
				mu.Unlock()
				return nil
			}

			// Unauthorized cancels the group: no point pushing the rest
			// with a dead session.
			if remote.IsUnauthorized(err) {
				return err
			}

			// Any other gateway failure is isolated to this record: it stays
			// pending and goes into the report. Non-gateway errors are local
			// storage failures, fatal to the whole cycle.
			if remote.IsRemote(err) {
				mu.Lock()
				report.Failed = append(report.Failed, Failure{LocalKey: rec.LocalKey, Err: err})
				mu.Unlock()
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if remote.IsUnauthorized(err) {
			c.auth.InvalidateSession()
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return err
	}
	return nil
}

// pushOne sends a single record's mutation. Each call is a complete,
// consistent unit: cancellation between records never leaves a half-applied
// record behind.
func (c *Coordinator) pushOne(ctx context.Context, gw remote.Gateway, rec store.Record) error {
	switch {
	case rec.State == store.StateDeleted:
		// Tombstone: delete remotely, then drop the local row. A record that
		// never reached the server is dropped without a network call; a
		// remote NotFound means it is already gone, which is fine.
		if rec.CanonicalID != "" {
			if err := gw.Delete(ctx, rec.CanonicalID); err != nil && !remote.IsNotFound(err) {
				return err
			}
		}
		return c.store.Remove(ctx, rec.Type, rec.LocalKey)

	case rec.CanonicalID == "":
		// Never pushed: create, using the local key as idempotency token so
		// a retry after a lost acknowledgement cannot duplicate the entity.
		canon, err := gw.Create(ctx, rec.LocalKey, rec.Payload)
		if err != nil {
			return err
		}
		return c.store.MarkSynced(ctx, rec.Type, rec.LocalKey, canon.ID, canon.Payload, rec.MutatedAt)

	default:
		canon, err := gw.Update(ctx, rec.CanonicalID, rec.Payload)
		if err != nil {
			if remote.IsNotFound(err) {
				// The canonical entity was deleted server-side. Mark the
				// local record for deletion instead of retrying forever;
				// the tombstone is resolved on the next cycle.
				if mdErr := c.store.MarkDeleted(ctx, rec.Type, rec.LocalKey); mdErr != nil && !errors.Is(mdErr, store.ErrNotFound) {
					return mdErr
				}
			}
			return err
		}
		return c.store.MarkSynced(ctx, rec.Type, rec.LocalKey, canon.ID, canon.Payload, rec.MutatedAt)
	}
}

// pull refreshes the local cache from the server's authoritative list.
// Refresh is strictly upsert-by-canonical-id: records without a canonical ID
// are invisible to the pull, and records with unpushed local work (pending or
// tombstoned) are left untouched. The local set is never replaced wholesale.
func (c *Coordinator) pull(ctx context.Context, t store.EntityType, gw remote.Gateway, report *Report) error {
	canons, err := gw.List(ctx, remote.ListFilter{})
	if err != nil {
		if remote.IsUnauthorized(err) {
			c.auth.InvalidateSession()
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		// A failed pull is not fatal: the cache is simply stale until the
		// next cycle. Surfaced in the report for the caller.
		report.PullErr = err
		return nil
	}

	for _, canon := range canons {
		existing, err := c.store.GetByCanonicalID(ctx, t, canon.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up canonical entity %s: %w", canon.ID, err)
		}

		if existing == nil {
			rec := store.NewRecord(t, canon.Payload)
			rec.CanonicalID = canon.ID
			rec.OwnerKey = canon.OwnerKey
			rec.State = store.StateSynced
			if err := c.store.Upsert(ctx, rec); err != nil {
				return err
			}
			report.Pulled++
			continue
		}

		if existing.State != store.StateSynced {
			// Unacknowledged local work wins until the push cycle resolves it
			continue
		}

		existing.Payload = canon.Payload
		existing.OwnerKey = canon.OwnerKey
		if err := c.store.Upsert(ctx, *existing); err != nil {
			return err
		}
		report.Pulled++
	}

	return nil
}
