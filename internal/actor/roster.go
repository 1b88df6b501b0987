package actor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

// normalizeName trims and collapses internal whitespace per spec §3's
// name constraint shared by groups and participants.
func normalizeName(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func validateName(s string) (string, error) {
	n := normalizeName(s)
	if count := utf8.RuneCountInString(n); count < 1 || count > 60 {
		return "", apperr.Validation("name must be between 1 and 60 characters")
	}
	return n, nil
}

func foldName(s string) string {
	return strings.ToLower(s)
}

// InitArgs carries the owner-created group and its owner participant into
// Init.
type InitArgs struct {
	Group            models.Group
	OwnerParticipant models.Participant
}

// Init creates the group if it doesn't exist yet. Re-init with an
// identical id is idempotent-safe (the stored group is returned unchanged,
// whatever name the replay carries), per the operation table in
// spec §4.1 — this lets the router retry a create that timed out on the
// HTTP leg without the actor rejecting the replay.
func (a *Actor) Init(ctx context.Context, args InitArgs) (models.Group, error) {
	var out models.Group
	err := a.call(ctx, "init", args, func(r response) {
		if r.err == nil {
			out = r.data.(models.Group)
		}
	})
	return out, err
}

func (a *Actor) handleInit(args InitArgs) response {
	name, err := validateName(args.Group.Name)
	if err != nil {
		return response{err: err}
	}
	args.Group.Name = name

	if a.initialized {
		if a.group.ID == args.Group.ID {
			return response{data: a.group}
		}
		return response{err: apperr.Internal(nil)}
	}

	a.initialized = true
	a.group = args.Group
	a.participants = []models.Participant{args.OwnerParticipant}
	a.spin = models.Idle(nil)
	a.checkpointNow()
	return response{data: a.group}
}

// GetGroup returns the current group snapshot.
func (a *Actor) GetGroup(ctx context.Context) (models.Group, error) {
	var out models.Group
	err := a.call(ctx, "getGroup", nil, func(r response) {
		if r.err == nil {
			out = r.data.(models.Group)
		}
	})
	return out, err
}

func (a *Actor) handleGetGroup() response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	return response{data: a.group}
}

// GetParticipants returns the roster, ordered by insertion.
func (a *Actor) GetParticipants(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	err := a.call(ctx, "getParticipants", nil, func(r response) {
		if r.err == nil {
			out = r.data.([]models.Participant)
		}
	})
	return out, err
}

func (a *Actor) handleGetParticipants() response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	return response{data: append([]models.Participant(nil), a.participants...)}
}

// RenameGroup updates the group's display name. Manager-only at the
// router layer; the actor itself just validates and applies.
func (a *Actor) RenameGroup(ctx context.Context, name string) (models.Group, error) {
	var out models.Group
	err := a.call(ctx, "renameGroup", name, func(r response) {
		if r.err == nil {
			out = r.data.(models.Group)
		}
	})
	return out, err
}

func (a *Actor) handleRenameGroup(name string) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	normalized, err := validateName(name)
	if err != nil {
		return response{err: err}
	}
	a.group.Name = normalized
	a.bumpVersion()
	a.emit(models.EventGroupUpdated, models.GroupUpdatedPayload{Group: a.group})
	a.checkpointNow()
	return response{data: a.group}
}

// AddParticipantArgs is the input to AddParticipant.
type AddParticipantArgs struct {
	Name    string
	EmailID *string
	Manager bool
}

func (a *Actor) AddParticipant(ctx context.Context, args AddParticipantArgs) (models.Participant, error) {
	var out models.Participant
	err := a.call(ctx, "addParticipant", args, func(r response) {
		if r.err == nil {
			out = r.data.(models.Participant)
		}
	})
	return out, err
}

// newParticipantID is overridable in tests; production uses google/uuid
// (see id.go).
var newParticipantID = newUUID

func (a *Actor) handleAddParticipant(args AddParticipantArgs) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	name, err := validateName(args.Name)
	if err != nil {
		return response{err: err}
	}
	if args.Manager && args.EmailID == nil {
		return response{err: apperr.Validation("a manager must have an email")}
	}
	if err := a.checkNameUnique(name, ""); err != nil {
		return response{err: err}
	}

	p := models.Participant{
		ID:      newParticipantID(),
		Name:    name,
		Active:  true,
		EmailID: args.EmailID,
		Manager: args.Manager,
	}
	a.participants = append(a.participants, p)
	a.bumpVersion()
	a.emit(models.EventParticipantAdded, models.ParticipantPayload{Participant: p})
	a.checkpointNow()
	return response{data: p}
}

// checkNameUnique verifies name doesn't collide (case-folded) with any
// existing participant other than excludeID.
func (a *Actor) checkNameUnique(name, excludeID string) error {
	folded := foldName(name)
	for _, p := range a.participants {
		if p.ID == excludeID {
			continue
		}
		if foldName(p.Name) == folded {
			return apperr.Conflict("Participant with this name already exists.")
		}
	}
	return nil
}

func (a *Actor) indexOfParticipant(id string) int {
	for i, p := range a.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// UpdateParticipantArgs carries only the fields the caller actually sent;
// EmailSet distinguishes "omitted" from "set to null" (clearing the
// email), which JSON's zero-value pointer can't express on its own.
type UpdateParticipantArgs struct {
	Active    *bool
	EmailSet  bool
	EmailID   *string
	Manager   *bool
}

type updateParticipantArgs struct {
	id   string
	args UpdateParticipantArgs
}

func (a *Actor) UpdateParticipant(ctx context.Context, participantID string, args UpdateParticipantArgs) (models.Participant, error) {
	var out models.Participant
	err := a.call(ctx, "updateParticipant", updateParticipantArgs{id: participantID, args: args}, func(r response) {
		if r.err == nil {
			out = r.data.(models.Participant)
		}
	})
	return out, err
}

func (a *Actor) handleUpdateParticipant(w updateParticipantArgs) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	idx := a.indexOfParticipant(w.id)
	if idx < 0 {
		return response{err: apperr.NotFound("participant not found")}
	}
	p := a.participants[idx]
	isOwner := w.id == a.group.OwnerParticipantID

	if isOwner && (w.args.EmailSet || w.args.Manager != nil) {
		return response{err: apperr.Validation("the owner's participant email and manager status cannot be changed")}
	}

	if w.args.Active != nil {
		p.Active = *w.args.Active
	}
	if w.args.EmailSet {
		p.EmailID = w.args.EmailID
		if p.EmailID == nil {
			p.Manager = false
		}
	}
	if w.args.Manager != nil {
		if *w.args.Manager && p.EmailID == nil {
			return response{err: apperr.Validation("a manager must have an email")}
		}
		p.Manager = *w.args.Manager
	}

	a.participants[idx] = p
	a.bumpVersion()
	a.emit(models.EventParticipantUpdated, models.ParticipantPayload{Participant: p})
	a.checkpointNow()
	return response{data: p}
}

func (a *Actor) RemoveParticipant(ctx context.Context, participantID string) error {
	return a.call(ctx, "removeParticipant", participantID, nil)
}

func (a *Actor) handleRemoveParticipant(id string) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	if id == a.group.OwnerParticipantID {
		return response{err: apperr.Validation("the owner's participant cannot be removed")}
	}
	idx := a.indexOfParticipant(id)
	if idx < 0 {
		return response{err: apperr.NotFound("participant not found")}
	}
	a.participants = append(a.participants[:idx], a.participants[idx+1:]...)
	a.bumpVersion()
	a.emit(models.EventParticipantRemoved, models.ParticipantRemovedPayload{ParticipantID: id})
	a.checkpointNow()
	return response{}
}
