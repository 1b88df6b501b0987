package actor

import (
	"context"
	"time"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/models"
	"github.com/dilbagh/theunfairwheel/internal/weighted"
)

// spinDurationMin/Max and the extraTurns choices are UI hints per spec §9
// ("durationMs is a UI hint, not a semantic deadline") — the resolve timer
// uses durationMs, but nothing downstream depends on its precision.
const (
	spinDurationMin = 4000
	spinDurationMax = 6000
)

var extraTurnChoices = [...]int{6, 7, 8}

func (a *Actor) RequestSpin(ctx context.Context) (models.GroupSpinState, error) {
	var out models.GroupSpinState
	err := a.call(ctx, "requestSpin", nil, func(r response) {
		if r.err == nil {
			out = r.data.(models.GroupSpinState)
		}
	})
	return out, err
}

func (a *Actor) handleRequestSpin() response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	if a.spin.Status == models.SpinSpinning {
		return response{err: apperr.Conflict("a spin is already running")}
	}

	active := activeParticipants(a.participants)
	if len(active) < 2 {
		return response{err: apperr.Conflict("at least two active participants are required to spin")}
	}
	total := weighted.Sum(active)
	if total <= 0 {
		return response{err: apperr.Internal(nil)}
	}

	winner := weighted.Pick(active, a.rng.Intn(total))
	durationMs := spinDurationMin + a.rng.Intn(spinDurationMax-spinDurationMin)
	extraTurns := extraTurnChoices[a.rng.Intn(len(extraTurnChoices))]
	startedAt := a.now()
	spinID := newSpinID()

	a.spin = models.GroupSpinState{
		Status:              models.SpinSpinning,
		SpinID:              spinID,
		StartedAt:           &startedAt,
		WinnerParticipantID: winner.ID,
		DurationMs:          durationMs,
		ExtraTurns:          extraTurns,
	}
	a.bumpVersion()
	a.emit(models.EventSpinStarted, models.SpinPayload{Spin: a.spin})
	a.checkpointNow()
	a.armResolveTimer(spinID, time.Duration(durationMs)*time.Millisecond)

	return response{data: a.spin}
}

// armResolveTimer schedules the deferred self-resolve described in spec
// §5's suspension point (iii). It never blocks the mailbox loop: run()
// selects on the timer channel alongside incoming requests.
func (a *Actor) armResolveTimer(spinID string, d time.Duration) {
	if a.resolveTimer != nil {
		a.resolveTimer.Stop()
	}
	a.scheduledSpinID = spinID
	a.resolveTimer = time.NewTimer(d)
}

// resolveSpin fires from run() when the resolve timer elapses. Per spec
// §9, it re-reads state and no-ops silently if the spin was superseded —
// this makes the deferred task infallible from the client's perspective.
func (a *Actor) resolveSpin(spinID string) {
	if a.spin.Status != models.SpinSpinning || a.spin.SpinID != spinID {
		return // superseded or already resolved; silent no-op
	}

	// counters captures each affected participant's pre-spin value, so a
	// later discard can revert to it exactly — including the winner's,
	// whose post-resolve value is always 0 and so can't be reconstructed
	// from itself.
	counters := make(map[string]int)
	var affected []models.Participant
	for i, p := range a.participants {
		if !p.Active {
			continue
		}
		counters[p.ID] = p.SpinsSinceLastWon
		if p.ID == a.spin.WinnerParticipantID {
			p.SpinsSinceLastWon = 0
		} else {
			p.SpinsSinceLastWon++
		}
		a.participants[i] = p
		affected = append(affected, p)
	}

	resolvedAt := a.now()
	resolvedSpin := a.spin
	resolvedSpin.ResolvedAt = &resolvedAt

	history := models.SpinHistoryItem{
		ID:                  spinID,
		CreatedAt:           resolvedAt,
		WinnerParticipantID: a.spin.WinnerParticipantID,
		Participants:        activeParticipants(a.participants),
	}
	a.history = append(a.history, history)
	if len(a.history) > models.HistoryLimit {
		a.history = a.history[len(a.history)-models.HistoryLimit:]
	}

	a.pending = &models.PendingResult{
		SpinID:    spinID,
		Counters:  counters,
		ExpiresAt: resolvedAt.Add(models.PendingTTL),
	}

	a.spin = models.Idle(&resolvedAt)
	a.bumpVersion()
	a.emit(models.EventSpinResolved, models.SpinPayload{Spin: resolvedSpin})
	for _, p := range affected {
		a.emit(models.EventParticipantUpdated, models.ParticipantPayload{Participant: p})
	}
	a.checkpointNow()
}

func (a *Actor) ListHistory(ctx context.Context) ([]models.SpinHistoryItem, error) {
	var out []models.SpinHistoryItem
	err := a.call(ctx, "listHistory", nil, func(r response) {
		if r.err == nil {
			out = r.data.([]models.SpinHistoryItem)
		}
	})
	return out, err
}

func (a *Actor) handleListHistory() response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	out := make([]models.SpinHistoryItem, len(a.history))
	for i, h := range a.history {
		out[len(a.history)-1-i] = h
	}
	return response{data: out}
}

func (a *Actor) SaveSpin(ctx context.Context, spinID string) error {
	return a.call(ctx, "saveSpin", spinID, nil)
}

func (a *Actor) handleSaveSpin(spinID string) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	if a.pending == nil || a.pending.SpinID != spinID {
		return response{} // no-op if not pending, per the operation table
	}
	a.pending = nil
	a.bumpVersion()
	a.emit(models.EventSpinResultDismissed, models.SpinResultDismissedPayload{SpinID: spinID, Action: models.DismissSave})
	a.checkpointNow()
	return response{}
}

func (a *Actor) DiscardSpin(ctx context.Context, spinID string) error {
	return a.call(ctx, "discardSpin", spinID, nil)
}

func (a *Actor) handleDiscardSpin(spinID string) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	if a.pending == nil || a.pending.SpinID != spinID {
		return response{}
	}
	pending := a.pending

	if pending.Expired(a.now()) {
		// Past its soft TTL: only the history entry is removed, counters
		// stand, and no dismissal event fires, per spec §4.1.
		a.removeHistoryEntry(spinID)
		a.pending = nil
		a.bumpVersion()
		a.checkpointNow()
		return response{}
	}

	var reverted []models.Participant
	for id, counter := range pending.Counters {
		idx := a.indexOfParticipant(id)
		if idx < 0 {
			continue // participant removed since the spin; nothing to revert
		}
		p := a.participants[idx]
		p.SpinsSinceLastWon = counter
		a.participants[idx] = p
		reverted = append(reverted, p)
	}

	a.removeHistoryEntry(spinID)
	a.pending = nil
	a.bumpVersion()
	for _, p := range reverted {
		a.emit(models.EventParticipantUpdated, models.ParticipantPayload{Participant: p})
	}
	a.emit(models.EventSpinResultDismissed, models.SpinResultDismissedPayload{SpinID: spinID, Action: models.DismissDiscard})
	a.checkpointNow()
	return response{}
}

func (a *Actor) removeHistoryEntry(spinID string) {
	for i, h := range a.history {
		if h.ID == spinID {
			a.history = append(a.history[:i], a.history[i+1:]...)
			return
		}
	}
}

func activeParticipants(all []models.Participant) []models.Participant {
	var out []models.Participant
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}
