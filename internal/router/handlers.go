package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dilbagh/theunfairwheel/internal/actor"
	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/identity"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/metadata"
	"github.com/dilbagh/theunfairwheel/internal/models"
	"github.com/dilbagh/theunfairwheel/internal/qr"
	"github.com/dilbagh/theunfairwheel/internal/realtime"
)

// Handlers wires the Group Router (spec §4.2): it translates HTTP calls
// into Group Actor operations, authenticates, computes role, gates, and
// keeps the Metadata Store in sync.
type Handlers struct {
	log      logger.Logger
	registry *actor.Registry
	identity *identity.Resolver
	meta     *metadata.Store
	realtime *realtime.Transport
	baseURL  func() string
}

func New(log logger.Logger, registry *actor.Registry, idResolver *identity.Resolver, meta *metadata.Store, rt *realtime.Transport, baseURL func() string) *Handlers {
	return &Handlers{
		log:      log,
		registry: registry,
		identity: idResolver,
		meta:     meta,
		realtime: rt,
		baseURL:  baseURL,
	}
}

// --- groups ---

func (h *Handlers) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	groupID := newGroupID()
	ownerParticipant := models.Participant{
		ID:      newGroupID(),
		Name:    displayName(id),
		Active:  true,
		EmailID: emailPtr(id.PrimaryEmail),
		Manager: true,
	}
	group := models.Group{
		ID:                 groupID,
		Name:               req.Name,
		CreatedAt:          time.Now().UTC(),
		OwnerUserID:        id.UserID,
		OwnerEmail:         id.PrimaryEmail,
		OwnerParticipantID: ownerParticipant.ID,
	}

	a := h.registry.GetOrCreate(r.Context(), groupID)
	created, err := a.Init(r.Context(), actor.InitArgs{Group: group, OwnerParticipant: ownerParticipant})
	if err != nil {
		respondError(w, err)
		return
	}

	h.syncGroupMetadata(r, created, []models.Participant{ownerParticipant})
	if err := h.meta.MarkOwner(r.Context(), id.UserID, created.ID); err != nil {
		h.log.Warn("metadata MarkOwner failed", "group_id", created.ID, "error", err)
	}

	respondCreated(w, created)
}

func (h *Handlers) handleListMyGroups(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	owned, err := h.meta.OwnedGroupIDs(r.Context(), id.UserID)
	if err != nil {
		h.log.Warn("metadata OwnedGroupIDs failed", "error", err)
	}

	ids := map[string]bool{}
	for _, gid := range owned {
		ids[gid] = true
	}
	for _, email := range id.VerifiedEmails {
		matched, err := h.meta.ParticipantGroupIDs(r.Context(), email)
		if err != nil {
			h.log.Warn("metadata ParticipantGroupIDs failed", "error", err)
			continue
		}
		for _, gid := range matched {
			ids[gid] = true
		}
	}

	summaries := make([]models.GroupSummary, 0, len(ids))
	for gid := range ids {
		rec, ok, err := h.meta.GetGroup(r.Context(), gid)
		if err != nil || !ok {
			continue
		}
		summaries = append(summaries, models.GroupSummary{
			ID:          rec.ID,
			Name:        rec.Name,
			CreatedAt:   rec.CreatedAt,
			OwnerUserID: rec.OwnerUserID,
			OwnerEmail:  rec.OwnerEmail,
		})
	}

	respondOK(w, summaries)
}

func (h *Handlers) handleGetBookmarks(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	ids, err := h.meta.Bookmarks(r.Context(), id.UserID)
	if err != nil {
		respondError(w, apperr.Internal(err))
		return
	}
	respondOK(w, bookmarksResponse(ids))
}

func (h *Handlers) handleSetBookmarks(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	var req bookmarksRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	out, err := h.meta.SetBookmarks(r.Context(), id.UserID, req.GroupIDs)
	if err != nil {
		respondError(w, apperr.Internal(err))
		return
	}
	respondOK(w, bookmarksResponse(out))
}

func (h *Handlers) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	a, ok := h.registry.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		respondError(w, apperr.NotFound("group not found"))
		return
	}
	group, err := a.GetGroup(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, group)
}

func (h *Handlers) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	a, group, _, role, err := h.requireManager(r)
	if err != nil {
		respondError(w, err)
		return
	}
	_ = group

	var req renameGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	updated, err := a.RenameGroup(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	participants, _ := a.GetParticipants(r.Context())
	h.syncGroupMetadata(r, updated, participants)

	_ = role
	respondOK(w, updated)
}

// --- participants ---

func (h *Handlers) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	a, ok := h.registry.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		respondError(w, apperr.NotFound("group not found"))
		return
	}
	participants, err := a.GetParticipants(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, participants)
}

func (h *Handlers) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	a, group, _, _, err := h.requireManager(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req addParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := a.AddParticipant(r.Context(), actor.AddParticipantArgs{
		Name:    req.Name,
		EmailID: req.EmailID,
		Manager: req.Manager,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	participants, _ := a.GetParticipants(r.Context())
	h.syncGroupMetadata(r, group, participants)

	respondCreated(w, p)
}

func (h *Handlers) handleUpdateParticipant(w http.ResponseWriter, r *http.Request) {
	a, group, _, _, err := h.requireManager(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	emailSet, emailID, err := toUpdateParticipantArgs(req)
	if err != nil {
		respondError(w, err)
		return
	}

	p, err := a.UpdateParticipant(r.Context(), chi.URLParam(r, "pid"), actor.UpdateParticipantArgs{
		Active:   req.Active,
		EmailSet: emailSet,
		EmailID:  emailID,
		Manager:  req.Manager,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	participants, _ := a.GetParticipants(r.Context())
	h.syncGroupMetadata(r, group, participants)

	respondOK(w, p)
}

func (h *Handlers) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	a, group, _, _, err := h.requireManager(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := a.RemoveParticipant(r.Context(), chi.URLParam(r, "pid")); err != nil {
		respondError(w, err)
		return
	}

	participants, _ := a.GetParticipants(r.Context())
	h.syncGroupMetadata(r, group, participants)

	respondNoContent(w)
}

func (h *Handlers) handleCommitParticipants(w http.ResponseWriter, r *http.Request) {
	a, group, _, _, err := h.requireManager(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req commitParticipantsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	args := actor.CommitArgs{Removes: req.Removes}
	for _, add := range req.Adds {
		args.Adds = append(args.Adds, actor.CommitAdd{Name: add.Name, EmailID: add.EmailID, Manager: add.Manager})
	}
	for _, u := range req.Updates {
		emailSet, emailID, err := toUpdateParticipantArgs(u.Args)
		if err != nil {
			respondError(w, err)
			return
		}
		args.Updates = append(args.Updates, actor.CommitUpdate{
			ParticipantID: u.ParticipantID,
			Args: actor.UpdateParticipantArgs{
				Active:   u.Args.Active,
				EmailSet: emailSet,
				EmailID:  emailID,
				Manager:  u.Args.Manager,
			},
		})
	}

	participants, err := a.CommitParticipants(r.Context(), args)
	if err != nil {
		respondError(w, err)
		return
	}

	h.syncGroupMetadata(r, group, participants)
	respondOK(w, participants)
}

// --- spin / history ---

func (h *Handlers) handleRequestSpin(w http.ResponseWriter, r *http.Request) {
	a, _, _, _, err := h.requireParticipant(r)
	if err != nil {
		respondError(w, err)
		return
	}
	spin, err := a.RequestSpin(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondAccepted(w, map[string]models.GroupSpinState{"spin": spin})
}

func (h *Handlers) handleListHistory(w http.ResponseWriter, r *http.Request) {
	a, _, _, _, err := h.requireParticipant(r)
	if err != nil {
		respondError(w, err)
		return
	}
	history, err := a.ListHistory(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, history)
}

func (h *Handlers) handleSaveSpin(w http.ResponseWriter, r *http.Request) {
	a, _, _, _, err := h.requireParticipant(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.SaveSpin(r.Context(), chi.URLParam(r, "spinId")); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}

func (h *Handlers) handleDiscardSpin(w http.ResponseWriter, r *http.Request) {
	a, _, _, _, err := h.requireParticipant(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := a.DiscardSpin(r.Context(), chi.URLParam(r, "spinId")); err != nil {
		respondError(w, err)
		return
	}
	respondNoContent(w)
}

// --- realtime & qr ---

func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.realtime.ServeGroup(w, r, chi.URLParam(r, "id"))
}

func (h *Handlers) handleQRCode(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if _, ok := h.registry.Lookup(r.Context(), groupID); !ok {
		respondError(w, apperr.NotFound("group not found"))
		return
	}
	url := qr.JoinURL(h.baseURL(), groupID)

	if r.URL.Query().Get("format") == "json" {
		respondOK(w, qrResponse{URL: url})
		return
	}

	png, err := qr.EncodePNG(url)
	if err != nil {
		respondError(w, apperr.Internal(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// --- shared gating helpers ---

// requireManager resolves the group and caller's role, rejecting with 404
// if the group doesn't exist and 403 if the caller isn't a manager.
func (h *Handlers) requireManager(r *http.Request) (*actor.Actor, models.Group, []models.Participant, models.Role, error) {
	a, group, participants, role, err := h.resolveGroupAndRole(r)
	if err != nil {
		return nil, models.Group{}, nil, models.Role{}, err
	}
	if !role.IsManager {
		return nil, models.Group{}, nil, models.Role{}, apperr.Access("manager role required")
	}
	return a, group, participants, role, nil
}

func (h *Handlers) requireParticipant(r *http.Request) (*actor.Actor, models.Group, []models.Participant, models.Role, error) {
	a, group, participants, role, err := h.resolveGroupAndRole(r)
	if err != nil {
		return nil, models.Group{}, nil, models.Role{}, err
	}
	if !role.IsParticipant {
		return nil, models.Group{}, nil, models.Role{}, apperr.Access("participant role required")
	}
	return a, group, participants, role, nil
}

func (h *Handlers) resolveGroupAndRole(r *http.Request) (*actor.Actor, models.Group, []models.Participant, models.Role, error) {
	a, ok := h.registry.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return nil, models.Group{}, nil, models.Role{}, apperr.NotFound("group not found")
	}
	group, err := a.GetGroup(r.Context())
	if err != nil {
		return nil, models.Group{}, nil, models.Role{}, err
	}
	participants, err := a.GetParticipants(r.Context())
	if err != nil {
		return nil, models.Group{}, nil, models.Role{}, err
	}
	id, _ := identity.FromContext(r.Context())
	role := resolveRole(id, group, participants)
	return a, group, participants, role, nil
}

// syncGroupMetadata maintains the Metadata Store per spec §4.2, logging
// and continuing on failure rather than rolling back the actor mutation
// that already succeeded.
func (h *Handlers) syncGroupMetadata(r *http.Request, group models.Group, participants []models.Participant) {
	rec := metadata.GroupRecord{
		ID:          group.ID,
		Name:        group.Name,
		CreatedAt:   group.CreatedAt,
		OwnerUserID: group.OwnerUserID,
		OwnerEmail:  group.OwnerEmail,
	}
	if err := h.meta.PutGroup(r.Context(), rec); err != nil {
		h.log.Warn("metadata PutGroup failed", "group_id", group.ID, "error", err)
	}

	emails := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.EmailID != nil {
			emails = append(emails, *p.EmailID)
		}
	}
	if err := h.meta.SetParticipantIndex(r.Context(), group.ID, emails); err != nil {
		h.log.Warn("metadata SetParticipantIndex failed", "group_id", group.ID, "error", err)
	}
}

func displayName(id models.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	if id.PrimaryEmail != "" {
		return id.PrimaryEmail
	}
	return "Owner"
}

func emailPtr(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}
