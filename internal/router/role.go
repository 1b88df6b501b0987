package router

import (
	"strings"

	"github.com/dilbagh/theunfairwheel/internal/models"
)

// resolveRole implements spec §4.2's role resolution against a caller's
// verified identity and a group's current roster.
func resolveRole(id models.Identity, group models.Group, participants []models.Participant) models.Role {
	role := models.Role{IsOwner: id.UserID != "" && id.UserID == group.OwnerUserID}

	verified := make(map[string]bool, len(id.VerifiedEmails))
	for _, e := range id.VerifiedEmails {
		verified[strings.ToLower(e)] = true
	}

	for _, p := range participants {
		if p.EmailID == nil {
			continue
		}
		if verified[strings.ToLower(*p.EmailID)] {
			role.IsParticipant = true
			role.IsManager = p.Manager
			role.MatchedParticipantID = p.ID
			break
		}
	}

	return role
}
