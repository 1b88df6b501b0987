package router

import (
	"bytes"
	"encoding/json"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
)

// jsonNullOrValue distinguishes an absent JSON field (the pointer to this
// type is nil) from an explicit null (IsNull true) from a string value —
// needed for emailId, where clearing an email is a distinct intent from
// not mentioning it at all.
type jsonNullOrValue struct {
	raw json.RawMessage
}

func (v *jsonNullOrValue) UnmarshalJSON(b []byte) error {
	v.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (v *jsonNullOrValue) IsNull() bool {
	return v == nil || bytes.Equal(bytes.TrimSpace(v.raw), []byte("null"))
}

func (v *jsonNullOrValue) StringValue() (string, error) {
	var s string
	if err := json.Unmarshal(v.raw, &s); err != nil {
		return "", apperr.Validation("emailId must be a string or null")
	}
	return s, nil
}

// createGroupRequest is the body of POST /groups.
type createGroupRequest struct {
	Name string `json:"name"`
}

// renameGroupRequest is the body of PATCH /groups/{id}.
type renameGroupRequest struct {
	Name string `json:"name"`
}

// addParticipantRequest is the body of POST /groups/{id}/participants.
type addParticipantRequest struct {
	Name    string  `json:"name"`
	EmailID *string `json:"emailId,omitempty"`
	Manager bool    `json:"manager,omitempty"`
}

// updateParticipantRequest is the body of PATCH
// /groups/{id}/participants/{pid}. emailId is held as a jsonNullOrValue
// and resolved by toUpdateParticipantArgs, since a plain pointer can't
// tell "omitted" from "set to null".
type updateParticipantRequest struct {
	Active  *bool            `json:"active,omitempty"`
	EmailID *jsonNullOrValue `json:"emailId,omitempty"`
	Manager *bool            `json:"manager,omitempty"`
}

// commitParticipantsRequest is the body of POST
// /groups/{id}/participants/commit.
type commitParticipantsRequest struct {
	Adds []struct {
		Name    string  `json:"name"`
		EmailID *string `json:"emailId,omitempty"`
		Manager bool    `json:"manager,omitempty"`
	} `json:"adds"`
	Updates []struct {
		ParticipantID string                    `json:"participantId"`
		Args          updateParticipantRequest `json:"args"`
	} `json:"updates"`
	Removes []string `json:"removes"`
}

// bookmarksRequest is the body of PUT /groups/bookmarks.
type bookmarksRequest struct {
	GroupIDs []string `json:"groupIds"`
}

// toUpdateParticipantArgs resolves the emailId tri-state of the wire request:
// emailSet reports whether the field was present, and emailID is nil for an
// explicit null.
func toUpdateParticipantArgs(req updateParticipantRequest) (emailSet bool, emailID *string, err error) {
	if req.EmailID == nil {
		return false, nil, nil
	}
	if req.EmailID.IsNull() {
		return true, nil, nil
	}
	s, err := req.EmailID.StringValue()
	if err != nil {
		return false, nil, err
	}
	return true, &s, nil
}
