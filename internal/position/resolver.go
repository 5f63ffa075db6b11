// Package position picks the content item a learner sees on entry and
// remembers it.
package position

import (
	"context"
	"fmt"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/sequence"
)

// Source says which rule of the priority chain produced a resolution.
type Source string

const (
	SourceRequested Source = "requested"
	SourceSaved     Source = "saved"
	SourceFirst     Source = "first"
	SourceNone      Source = "none"
)

type Resolution struct {
	Entry  sequence.Entry
	Source Source
}

// Found is false only for an empty course.
func (r Resolution) Found() bool { return r.Source != SourceNone }

// Listener hears about every successful resolution. The player uses it to
// throw away assessment state.
type Listener interface {
	Activated(key Key, entry sequence.Entry)
}

type ListenerFunc func(key Key, entry sequence.Entry)

func (f ListenerFunc) Activated(key Key, entry sequence.Entry) { f(key, entry) }

type Resolver struct {
	store Store
	log   *logger.Logger

	mu        sync.Mutex
	listeners []subscription
	nextSub   int
}

type subscription struct {
	id int
	l  Listener
}

func NewResolver(store Store, log *logger.Logger) *Resolver {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Resolver{store: store, log: logger.OrNop(log).With("service", "PositionResolver")}
}

// Subscribe adds a listener and returns the function that removes it.
func (r *Resolver) Subscribe(l Listener) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	id := r.nextSub
	r.listeners = append(r.listeners, subscription{id: id, l: l})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.listeners {
			if s.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Resolve walks the chain with Choose and records the result with Commit.
// A failed write-back is returned alongside the (still valid) resolution.
func (r *Resolver) Resolve(ctx context.Context, key Key, seq sequence.Sequence, requestedID string) (Resolution, error) {
	res := r.Choose(ctx, key, seq, requestedID)
	return res, r.Commit(ctx, key, res)
}

// Choose walks the chain: requested id, saved position, first entry. Ids
// missing from seq fall through. An empty seq resolves to SourceNone. Choose
// only reads; nothing is saved and no listener hears about it.
func (r *Resolver) Choose(ctx context.Context, key Key, seq sequence.Sequence, requestedID string) Resolution {
	if seq.Empty() {
		return Resolution{Source: SourceNone}
	}
	if requestedID != "" {
		if e, found := seq.Lookup(requestedID); found {
			return Resolution{Entry: e, Source: SourceRequested}
		}
		r.log.Debug("requested item not in sequence", "key", key.String(), "item_id", requestedID)
	}
	saved, has, err := r.store.Get(ctx, key)
	if err != nil {
		r.log.Warn("read saved position", "key", key.String(), "error", err)
	}
	if has {
		if e, found := seq.Lookup(saved); found {
			return Resolution{Entry: e, Source: SourceSaved}
		}
	}
	e, _ := seq.First()
	return Resolution{Entry: e, Source: SourceFirst}
}

// Commit saves res as the key's position and notifies listeners. A
// SourceNone resolution touches nothing. Listeners are notified even when
// the write fails.
func (r *Resolver) Commit(ctx context.Context, key Key, res Resolution) error {
	if !res.Found() {
		return nil
	}
	var werr error
	if err := r.store.Put(ctx, key, res.Entry.Item.ID); err != nil {
		werr = fmt.Errorf("save position %s: %w", key, err)
		r.log.Warn("save position", "key", key.String(), "error", err)
	}
	r.mu.Lock()
	subs := append([]subscription(nil), r.listeners...)
	r.mu.Unlock()
	for _, s := range subs {
		s.l.Activated(key, res.Entry)
	}
	return werr
}
