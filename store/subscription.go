package store

import "context"

// Subscription is a live query over the local cache. It delivers an initial
// snapshot on creation and a fresh snapshot after every committed write to
// the subscribed entity type. Snapshots are coalesced: a slow consumer only
// ever sees the most recent state, never a backlog of stale ones.
type Subscription struct {
	id     int
	store  *Store
	typ    EntityType
	filter Filter
	ch     chan []Record
}

// Subscribe registers a live query for one entity type.
// The first snapshot is queried synchronously so a new subscriber always
// starts from current state. Close the subscription to stop delivery.
func (s *Store) Subscribe(ctx context.Context, t EntityType, f Filter) (*Subscription, error) {
	snapshot, err := s.List(ctx, t, f)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		store:  s,
		typ:    t,
		filter: f,
		ch:     make(chan []Record, 1),
	}
	sub.ch <- snapshot

	s.mu.Lock()
	sub.id = s.nextSubID
	s.nextSubID++
	s.subs[sub.id] = sub
	s.mu.Unlock()

	return sub, nil
}

// Updates returns the channel delivering snapshots. It is closed when the
// subscription (or the store) is closed.
func (sub *Subscription) Updates() <-chan []Record {
	return sub.ch
}

// Close cancels the subscription
func (sub *Subscription) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	if _, ok := sub.store.subs[sub.id]; !ok {
		return
	}
	delete(sub.store.subs, sub.id)
	close(sub.ch)
}

// notify re-queries and pushes a snapshot to every subscription of the
// written entity type. Called after each committed write; a snapshot still
// sitting unread in a subscriber's buffer is replaced, not queued behind.
func (s *Store) notify(t EntityType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.typ != t {
			continue
		}
		snapshot, err := s.List(context.Background(), sub.typ, sub.filter)
		if err != nil {
			// Storage failure during fan-out: the subscriber keeps its last
			// snapshot and catches up on the next write.
			continue
		}
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snapshot
	}
}
