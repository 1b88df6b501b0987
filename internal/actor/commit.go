package actor

import (
	"context"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

// CommitAdd is one addition within an atomic roster commit.
type CommitAdd struct {
	Name    string
	EmailID *string
	Manager bool
}

// CommitUpdate is one update within an atomic roster commit.
type CommitUpdate struct {
	ParticipantID string
	Args          UpdateParticipantArgs
}

// CommitArgs is the input to CommitParticipants: spec §4.1's atomic
// multi-operation roster mutation.
type CommitArgs struct {
	Adds    []CommitAdd
	Updates []CommitUpdate
	Removes []string
}

func (a *Actor) CommitParticipants(ctx context.Context, args CommitArgs) ([]models.Participant, error) {
	var out []models.Participant
	err := a.call(ctx, "commitParticipants", args, func(r response) {
		if r.err == nil {
			out = r.data.([]models.Participant)
		}
	})
	return out, err
}

func (a *Actor) handleCommitParticipants(args CommitArgs) response {
	if err := a.requireInitialized(); err != nil {
		return response{err: err}
	}
	if err := a.validateCommit(args); err != nil {
		return response{err: err}
	}

	var removed []string
	remaining := a.participants[:0:0]
	removeSet := toSet(args.Removes)
	for _, p := range a.participants {
		if removeSet[p.ID] {
			removed = append(removed, p.ID)
			continue
		}
		remaining = append(remaining, p)
	}
	a.participants = remaining

	updateOrder := make([]string, 0, len(args.Updates))
	updatesByID := make(map[string]UpdateParticipantArgs, len(args.Updates))
	for _, u := range args.Updates {
		updateOrder = append(updateOrder, u.ParticipantID)
		updatesByID[u.ParticipantID] = u.Args
	}
	var updated []models.Participant
	for _, id := range updateOrder {
		idx := a.indexOfParticipant(id)
		if idx < 0 {
			continue // removed already excluded by validation; defensive
		}
		p := a.participants[idx]
		ua := updatesByID[id]
		if ua.Active != nil {
			p.Active = *ua.Active
		}
		if ua.EmailSet {
			p.EmailID = ua.EmailID
			if p.EmailID == nil {
				p.Manager = false
			}
		}
		if ua.Manager != nil {
			p.Manager = *ua.Manager
		}
		a.participants[idx] = p
		updated = append(updated, p)
	}

	var added []models.Participant
	for _, add := range args.Adds {
		name, _ := validateName(add.Name)
		p := models.Participant{
			ID:      newParticipantID(),
			Name:    name,
			Active:  true,
			EmailID: add.EmailID,
			Manager: add.Manager,
		}
		a.participants = append(a.participants, p)
		added = append(added, p)
	}

	a.bumpVersion()
	for _, id := range removed {
		a.emit(models.EventParticipantRemoved, models.ParticipantRemovedPayload{ParticipantID: id})
	}
	for _, p := range updated {
		a.emit(models.EventParticipantUpdated, models.ParticipantPayload{Participant: p})
	}
	for _, p := range added {
		a.emit(models.EventParticipantAdded, models.ParticipantPayload{Participant: p})
	}
	a.checkpointNow()

	return response{data: append([]models.Participant(nil), a.participants...)}
}

// validateCommit rejects the whole request per spec §4.1 before anything
// is applied.
func (a *Actor) validateCommit(args CommitArgs) error {
	removeSet := toSet(args.Removes)
	for _, id := range args.Removes {
		if id == a.group.OwnerParticipantID {
			return apperr.Validation("the owner's participant cannot be removed")
		}
		if a.indexOfParticipant(id) < 0 {
			return apperr.NotFound("participant not found: " + id)
		}
	}

	seenUpdate := map[string]bool{}
	for _, u := range args.Updates {
		if removeSet[u.ParticipantID] {
			return apperr.Validation("cannot update a participant that is also being removed")
		}
		if seenUpdate[u.ParticipantID] {
			return apperr.Validation("duplicate update for the same participant")
		}
		seenUpdate[u.ParticipantID] = true
		if a.indexOfParticipant(u.ParticipantID) < 0 {
			return apperr.NotFound("participant not found: " + u.ParticipantID)
		}
	}

	survivingNames := map[string]bool{}
	for _, p := range a.participants {
		if removeSet[p.ID] {
			continue
		}
		survivingNames[foldName(p.Name)] = true
	}

	addNames := map[string]bool{}
	for _, add := range args.Adds {
		name, err := validateName(add.Name)
		if err != nil {
			return err
		}
		folded := foldName(name)
		if survivingNames[folded] || addNames[folded] {
			return apperr.Conflict("Participant with this name already exists.")
		}
		addNames[folded] = true
		if add.Manager && add.EmailID == nil {
			return apperr.Validation("a manager must have an email")
		}
	}

	for _, u := range args.Updates {
		idx := a.indexOfParticipant(u.ParticipantID)
		p := a.participants[idx]
		finalEmail := p.EmailID
		finalManager := p.Manager
		if u.Args.EmailSet {
			finalEmail = u.Args.EmailID
		}
		if u.Args.Manager != nil {
			finalManager = *u.Args.Manager
		}
		if finalManager && finalEmail == nil {
			return apperr.Validation("a manager must have an email")
		}
	}

	return nil
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
