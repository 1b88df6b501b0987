// Package models holds the wire/domain types shared between the Group
// Actor, the Group Router, and the Realtime Transport.
package models

import "time"

// Group is the named container owned by a single user. Its identity
// fields are set once at creation and never change.
type Group struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	CreatedAt          time.Time `json:"createdAt"`
	OwnerUserID        string    `json:"ownerUserId"`
	OwnerEmail         string    `json:"ownerEmail"`
	OwnerParticipantID string    `json:"ownerParticipantId"`
}

// GroupSummary is the trimmed projection returned by GET /groups/me and
// the cross-group metadata index — enough to render a group list without
// fetching each group's full roster.
type GroupSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerUserID string    `json:"ownerUserId"`
	OwnerEmail  string    `json:"ownerEmail"`
}
