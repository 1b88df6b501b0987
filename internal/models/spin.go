package models

import "time"

// SpinStatus tags the two states of GroupSpinState.
type SpinStatus string

const (
	SpinIdle     SpinStatus = "idle"
	SpinSpinning SpinStatus = "spinning"
)

// GroupSpinState is the group's current spin — idle, or mid-spin with the
// winner already precomputed at start time per spec §4.1.
type GroupSpinState struct {
	Status              SpinStatus `json:"status"`
	SpinID              string     `json:"spinId,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	WinnerParticipantID string     `json:"winnerParticipantId,omitempty"`
	DurationMs          int        `json:"durationMs,omitempty"`
	ExtraTurns          int        `json:"extraTurns,omitempty"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
}

// Idle returns a fresh idle state, optionally carrying the resolve time of
// the spin it followed.
func Idle(resolvedAt *time.Time) GroupSpinState {
	return GroupSpinState{Status: SpinIdle, ResolvedAt: resolvedAt}
}

// SpinHistoryItem is one entry in a group's bounded 20-item ring of past
// resolved spins.
type SpinHistoryItem struct {
	ID                  string        `json:"id"`
	CreatedAt           time.Time     `json:"createdAt"`
	WinnerParticipantID string        `json:"winnerParticipantId"`
	Participants        []Participant `json:"participants"`
}

// HistoryLimit is the bounded ring size from spec §3.
const HistoryLimit = 20

// PendingResult is the reversible window between a spin resolving and the
// client confirming (save) or undoing (discard) the outcome.
type PendingResult struct {
	SpinID    string         `json:"spinId"`
	Counters  map[string]int `json:"counters"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// PendingTTL is the soft TTL from spec §3/§5.
const PendingTTL = 10 * time.Minute

// Expired reports whether this pending result is past its TTL as of t.
func (p PendingResult) Expired(t time.Time) bool {
	return t.After(p.ExpiresAt)
}
