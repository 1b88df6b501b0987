package actor

import (
	"context"
	"sync"

	"github.com/dilbagh/theunfairwheel/internal/logger"
)

// Registry is the process-wide keyed collection of live Group Actors
// described in spec §9 ("Subscribers are owned by the actor; store them in
// a keyed collection" generalizes here to actors themselves). Actors are
// created lazily on first access and live for the process lifetime; there
// is no eviction yet, matching spec's silence on capacity limits.
type Registry struct {
	log        logger.Logger
	checkpoint CheckpointStore

	mu     sync.Mutex
	actors map[string]*Actor
}

func NewRegistry(log logger.Logger, checkpoint CheckpointStore) *Registry {
	return &Registry{
		log:        log,
		checkpoint: checkpoint,
		actors:     make(map[string]*Actor),
	}
}

// GetOrCreate returns the actor for id, rehydrating it from a checkpoint if
// one exists (see Lookup) or else creating a brand new, empty actor.
func (r *Registry) GetOrCreate(ctx context.Context, id string) *Actor {
	if a, ok := r.Lookup(ctx, id); ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[id]; ok {
		return a
	}
	a := New(id, r.log, WithCheckpoint(r.checkpoint))
	r.actors[id] = a
	return a
}

// Lookup returns the actor for id, rehydrating it from the checkpoint store
// on first access if it isn't already live in memory — so a group created
// before a process restart is reachable again instead of 404ing forever.
// It never creates a group that has no prior existence anywhere.
func (r *Registry) Lookup(ctx context.Context, id string) (*Actor, bool) {
	r.mu.Lock()
	if a, ok := r.actors[id]; ok {
		r.mu.Unlock()
		return a, true
	}
	r.mu.Unlock()

	if r.checkpoint == nil {
		return nil, false
	}
	snap, found, err := r.checkpoint.Load(ctx, id)
	if err != nil {
		r.log.Warn("checkpoint load failed", "group_id", id, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	r.mu.Lock()
	if a, ok := r.actors[id]; ok {
		r.mu.Unlock()
		return a, true
	}
	a := New(id, r.log, WithCheckpoint(r.checkpoint))
	r.actors[id] = a
	r.mu.Unlock()

	if err := a.Restore(ctx, snap); err != nil {
		r.log.Warn("checkpoint restore failed", "group_id", id, "error", err)
	}
	return a, true
}
