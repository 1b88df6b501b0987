package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dilbagh/theunfairwheel/internal/actor"
	"github.com/dilbagh/theunfairwheel/internal/checkpoint"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

func TestRegistry_GetOrCreate_IsStableAcrossCalls(t *testing.T) {
	registry := actor.NewRegistry(logger.New(), nil)
	ctx := context.Background()

	first := registry.GetOrCreate(ctx, "g1")
	second := registry.GetOrCreate(ctx, "g1")

	require.Same(t, first, second)
}

func TestRegistry_Lookup_MissesWithoutCheckpoint(t *testing.T) {
	registry := actor.NewRegistry(logger.New(), nil)

	_, ok := registry.Lookup(context.Background(), "never-created")
	require.False(t, ok)
}

// TestRegistry_Lookup_RehydratesFromCheckpoint simulates a process restart:
// a group is created and mutated against one registry backed by a
// checkpoint store, then a brand new registry sharing that same store
// looks the group up without ever calling GetOrCreate for it first. This
// is the path every read-only handler (GetGroup, GetParticipants, the
// spin/history endpoints, the WS and QR endpoints) relies on to survive a
// restart rather than 404ing forever.
func TestRegistry_Lookup_RehydratesFromCheckpoint(t *testing.T) {
	store, err := checkpoint.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	log := logger.New()

	before := actor.NewRegistry(log, store)
	a := before.GetOrCreate(ctx, "g1")
	owner := models.Participant{ID: "owner", Name: "Owner", Active: true}
	_, err = a.Init(ctx, actor.InitArgs{Group: models.Group{ID: "g1", Name: "Lunch"}, OwnerParticipant: owner})
	require.NoError(t, err)

	after := actor.NewRegistry(log, store)
	restored, ok := after.Lookup(ctx, "g1")
	require.True(t, ok, "expected Lookup to rehydrate an actor from the checkpoint store")

	group, err := restored.GetGroup(ctx)
	require.NoError(t, err)
	require.Equal(t, "Lunch", group.Name)

	// A second Lookup must return the same in-memory actor rather than
	// restoring a fresh one from the checkpoint on every call.
	again, ok := after.Lookup(ctx, "g1")
	require.True(t, ok)
	require.Same(t, restored, again)
}

func TestRegistry_Lookup_MissingGroupInCheckpointBackedRegistry(t *testing.T) {
	store, err := checkpoint.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := actor.NewRegistry(logger.New(), store)
	_, ok := registry.Lookup(context.Background(), "never-existed")
	require.False(t, ok)
}
