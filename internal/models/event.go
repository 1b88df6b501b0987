package models

import "time"

// Event type names, per spec §6.
const (
	EventSnapshot            = "snapshot"
	EventGroupUpdated        = "group.updated"
	EventParticipantAdded    = "participant.added"
	EventParticipantUpdated  = "participant.updated"
	EventParticipantRemoved  = "participant.removed"
	EventSpinStarted         = "spin.started"
	EventSpinResolved        = "spin.resolved"
	EventSpinResultDismissed = "spin.result.dismissed"
)

// Event is the envelope every WebSocket message shares: {type, groupId,
// version, ts, payload}. Payload is one of the *Payload types below,
// chosen by Type.
type Event struct {
	Type    string      `json:"type"`
	GroupID string      `json:"groupId"`
	Version int64       `json:"version"`
	Ts      time.Time   `json:"ts"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload is sent once per connection at open.
type SnapshotPayload struct {
	Group        Group           `json:"group"`
	Participants []Participant   `json:"participants"`
	Spin         GroupSpinState  `json:"spin"`
}

// GroupUpdatedPayload carries the group after a rename.
type GroupUpdatedPayload struct {
	Group Group `json:"group"`
}

// ParticipantPayload carries one participant after an add or update.
type ParticipantPayload struct {
	Participant Participant `json:"participant"`
}

// ParticipantRemovedPayload names the participant that no longer exists.
type ParticipantRemovedPayload struct {
	ParticipantID string `json:"participantId"`
}

// SpinPayload carries the spin state after it starts or resolves.
type SpinPayload struct {
	Spin GroupSpinState `json:"spin"`
}

// DismissAction distinguishes how a pending result was closed out.
type DismissAction string

const (
	DismissSave    DismissAction = "save"
	DismissDiscard DismissAction = "discard"
)

// SpinResultDismissedPayload reports which pending result was closed and
// how.
type SpinResultDismissedPayload struct {
	SpinID string        `json:"spinId"`
	Action DismissAction `json:"action"`
}
