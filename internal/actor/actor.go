// Package actor implements the Group Actor from spec §4.1: a per-group
// single-writer state machine that serializes every mutation, drives the
// spin state machine, and owns the fan-out to its WebSocket subscribers.
//
// The concurrency discipline follows the teacher's websocket.Hub: one
// goroutine per actor reads a mailbox channel and processes requests to
// completion — including event emission — before the next one starts.
// There is no shared-state locking inside an actor; everything it owns is
// only ever touched from that one goroutine.
package actor

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

// actorSeq perturbs each actor's default RNG seed so actors created in the
// same nanosecond still draw independent sequences, per spec §5 ("RNGs...
// must be independent across actors to avoid correlated outcomes").
var actorSeq int64

// CheckpointStore is the best-effort persistence hook described in spec §5
// ("awaits its persistence checkpoint after mutating state"). It is
// intentionally tiny: the actor hands it an opaque snapshot after each
// transaction and never reads it back except at startup.
type CheckpointStore interface {
	Save(ctx context.Context, groupID string, snapshot Snapshot) error
	Load(ctx context.Context, groupID string) (Snapshot, bool, error)
}

// Snapshot is everything needed to rehydrate an Actor after a restart.
type Snapshot struct {
	Group        models.Group
	Participants []models.Participant
	Spin         models.GroupSpinState
	History      []models.SpinHistoryItem
	Pending      *models.PendingResult
	Version      int64
}

// request is the mailbox envelope: an opaque op plus a reply channel. All
// public Actor methods are thin wrappers that build one of these, send it,
// and unpack the reply — the same shape as the teacher's Hub register/
// unregister/broadcast channels, generalized to a single channel so the
// operation table in spec §4.1 maps to one switch in run().
type request struct {
	op    string
	args  interface{}
	reply chan response
}

type response struct {
	data interface{}
	err  error
}

// Actor owns one group's mutable state end to end, per spec §3 Ownership.
type Actor struct {
	id         string
	log        logger.Logger
	checkpoint CheckpointStore
	now        func() time.Time
	rng        *rand.Rand

	mailbox chan request
	stop    chan struct{}

	initialized  bool
	group        models.Group
	participants []models.Participant
	spin         models.GroupSpinState
	history      []models.SpinHistoryItem
	pending      *models.PendingResult
	version      int64

	subscribers     map[uint64]chan models.Event
	nextSubscriber  uint64

	resolveTimer    *time.Timer
	scheduledSpinID string
}

// Option configures an Actor at construction.
type Option func(*Actor)

// WithCheckpoint wires a best-effort persistence store.
func WithCheckpoint(s CheckpointStore) Option {
	return func(a *Actor) { a.checkpoint = s }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(a *Actor) { a.now = now }
}

// WithRand overrides the RNG. Spec §5 requires RNGs to be independent
// across actors, not cryptographically secure, so each actor defaults to
// its own math/rand source seeded from the current time plus a
// per-process actor counter (see New) rather than sharing a package-level
// generator.
func WithRand(rng *rand.Rand) Option {
	return func(a *Actor) { a.rng = rng }
}

// New creates an Actor and starts its mailbox loop. Callers reach it only
// through a registry (see registry.go); it starts uninitialized until
// Init is called.
func New(id string, log logger.Logger, opts ...Option) *Actor {
	a := &Actor{
		id:          id,
		log:         log,
		now:         time.Now,
		mailbox:     make(chan request, 32),
		stop:        make(chan struct{}),
		subscribers: make(map[uint64]chan models.Event),
		spin:        models.Idle(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		seed := time.Now().UnixNano() + atomic.AddInt64(&actorSeq, 1)
		a.rng = rand.New(rand.NewSource(seed))
	}
	go a.run()
	return a
}

// Restore rehydrates an actor from a checkpoint snapshot. It must be
// called before the actor is exposed to callers (the registry does this
// right after New, if a checkpoint exists).
func (a *Actor) Restore(ctx context.Context, snap Snapshot) error {
	return a.call(ctx, "restore", snap, nil)
}

// ID returns the group id this actor serves.
func (a *Actor) ID() string { return a.id }

// Stop terminates the mailbox loop. The registry never calls it (actors
// live for the process lifetime). Calls made after Stop fail with an
// internal error; a request already sitting in the mailbox gets no reply,
// and its caller waits until its own context ends.
func (a *Actor) Stop() {
	close(a.stop)
}

// call sends req to the mailbox and waits for its reply, respecting ctx
// cancellation on both legs (enqueue and reply wait) per the suspension
// points described in spec §5.
func (a *Actor) call(ctx context.Context, op string, args interface{}, out func(response)) error {
	reply := make(chan response, 1)
	req := request{op: op, args: args, reply: reply}

	select {
	case a.mailbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stop:
		return apperr.Internal(nil)
	}

	select {
	case resp := <-reply:
		if out != nil {
			out(resp)
		}
		return resp.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the actor's single-writer loop: exactly one request processed at
// a time, from acceptance through event emission, before the next begins.
func (a *Actor) run() {
	for {
		var resolveC <-chan time.Time
		if a.resolveTimer != nil {
			resolveC = a.resolveTimer.C
		}

		select {
		case req := <-a.mailbox:
			resp := a.dispatch(req)
			req.reply <- resp

		case <-resolveC:
			a.resolveTimer = nil
			a.resolveSpin(a.scheduledSpinID)

		case <-a.stop:
			return
		}
	}
}

func (a *Actor) dispatch(req request) response {
	switch req.op {
	case "restore":
		a.handleRestore(req.args.(Snapshot))
		return response{}
	case "init":
		return a.handleInit(req.args.(InitArgs))
	case "getGroup":
		return a.handleGetGroup()
	case "getParticipants":
		return a.handleGetParticipants()
	case "renameGroup":
		return a.handleRenameGroup(req.args.(string))
	case "addParticipant":
		return a.handleAddParticipant(req.args.(AddParticipantArgs))
	case "updateParticipant":
		return a.handleUpdateParticipant(req.args.(updateParticipantArgs))
	case "removeParticipant":
		return a.handleRemoveParticipant(req.args.(string))
	case "commitParticipants":
		return a.handleCommitParticipants(req.args.(CommitArgs))
	case "requestSpin":
		return a.handleRequestSpin()
	case "listHistory":
		return a.handleListHistory()
	case "saveSpin":
		return a.handleSaveSpin(req.args.(string))
	case "discardSpin":
		return a.handleDiscardSpin(req.args.(string))
	case "subscribe":
		return a.handleSubscribe()
	case "unsubscribe":
		a.handleUnsubscribe(req.args.(uint64))
		return response{}
	default:
		return response{err: apperr.Internalf("unknown actor op %q", req.op)}
	}
}

func (a *Actor) requireInitialized() error {
	if !a.initialized {
		return apperr.NotFound("group not found")
	}
	return nil
}

func (a *Actor) handleRestore(snap Snapshot) {
	a.initialized = true
	a.group = snap.Group
	a.participants = snap.Participants
	a.spin = snap.Spin
	a.history = snap.History
	a.pending = snap.Pending
	a.version = snap.Version

	if a.spin.Status == models.SpinSpinning && a.spin.StartedAt != nil {
		elapsed := a.now().Sub(*a.spin.StartedAt)
		remaining := time.Duration(a.spin.DurationMs)*time.Millisecond - elapsed
		if remaining < 0 {
			remaining = 0
		}
		a.armResolveTimer(a.spin.SpinID, remaining)
	}
}

func (a *Actor) snapshot() Snapshot {
	return Snapshot{
		Group:        a.group,
		Participants: append([]models.Participant(nil), a.participants...),
		Spin:         a.spin,
		History:      append([]models.SpinHistoryItem(nil), a.history...),
		Pending:      a.pending,
		Version:      a.version,
	}
}

// checkpointNow fires a best-effort save; failures are logged, never
// surfaced to the caller, per spec §7 propagation policy.
func (a *Actor) checkpointNow() {
	if a.checkpoint == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.checkpoint.Save(ctx, a.id, a.snapshot()); err != nil {
		a.log.Warn("checkpoint save failed", "group_id", a.id, "error", err)
	}
}

func (a *Actor) bumpVersion() int64 {
	a.version++
	return a.version
}
