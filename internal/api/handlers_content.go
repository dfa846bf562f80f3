package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/access"
	"github.com/caribbeat/caribbeat/internal/auth"
	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/jobs"
	"github.com/caribbeat/caribbeat/internal/models"
)

type ContentRequest struct {
	Title              string  `json:"title"`
	Description        *string `json:"description"`
	MainURL            string  `json:"main_url"`
	EmbedURL           *string `json:"embed_url"`
	CustomThumbnailURL *string `json:"custom_thumbnail_url"`
	ContentType        string  `json:"content_type"`
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 24)
	items, err := s.contentRepo.ListActive(r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list content")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	if !item.IsActive {
		// Hidden from everyone except moderators and the owner.
		claims := s.optionalClaims(r)
		if claims == nil || (claims.UserID != item.CreatorID && !s.auth.CheckPermission(claims.Role, models.RoleAuthority)) {
			httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) handleListCreatorContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid creator id")
		return
	}
	items, err := s.contentRepo.ListByCreator(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list content")
		return
	}
	// Anonymous and regular viewers only see active items.
	claims := s.optionalClaims(r)
	owner := claims != nil && (claims.UserID == id || s.auth.CheckPermission(claims.Role, models.RoleAuthority))
	if !owner {
		visible := items[:0]
		for _, item := range items {
			if item.IsActive {
				visible = append(visible, item)
			}
		}
		items = visible
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title == "" || req.MainURL == "" || req.ContentType == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "title, main_url and content_type are required")
		return
	}

	user, err := s.userRepo.GetByID(s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid_token", "unknown user")
		return
	}

	item := &models.ContentItem{
		CreatorID:          user.ID,
		CreatorName:        user.Username,
		Title:              req.Title,
		Description:        req.Description,
		MainURL:            req.MainURL,
		EmbedURL:           req.EmbedURL,
		CustomThumbnailURL: req.CustomThumbnailURL,
		ContentType:        req.ContentType,
		IsActive:           true,
	}
	if err := s.contentRepo.Create(item); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create content")
		return
	}

	s.publishContent(item)
	s.enqueueContentFanout(item)
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedContent(w, r)
	if !ok {
		return
	}
	var req ContentRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title != "" {
		item.Title = req.Title
	}
	if req.MainURL != "" {
		item.MainURL = req.MainURL
	}
	if req.ContentType != "" {
		item.ContentType = req.ContentType
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.EmbedURL != nil {
		item.EmbedURL = req.EmbedURL
	}
	if req.CustomThumbnailURL != nil {
		item.CustomThumbnailURL = req.CustomThumbnailURL
	}

	if err := s.contentRepo.Update(item); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update content")
		return
	}
	s.publishContent(item)
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedContent(w, r)
	if !ok {
		return
	}
	if err := s.contentRepo.Delete(item.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to delete content")
		return
	}
	// Deleting the live document drops the item from every feed.
	if err := s.feed.Delete(curation.ContentPath(item.ID.String())); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to publish deletion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": item.ID.String()})
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	var viewerID *uuid.UUID
	if claims := s.optionalClaims(r); claims != nil {
		viewerID = &claims.UserID
	}
	count, err := s.contentRepo.RecordView(id, viewerID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"view_count": count})
}

func (s *Server) handleLikeContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	count, err := s.contentRepo.AddLike(id, s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"like_count": count})
}

// handlePlayContent is the playback gate for recorded content. Browsing is
// anonymous; pressing play is not.
func (s *Server) handlePlayContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil || !item.IsActive {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}

	claims := s.optionalClaims(r)
	ctx := s.accessContext(claims)
	target := &access.Target{ID: item.ID.String()}
	if !access.HasAccess(ctx, target) {
		s.writeAccessDenied(w, ctx, target)
		return
	}

	url := item.MainURL
	if item.EmbedURL != nil && *item.EmbedURL != "" {
		url = *item.EmbedURL
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ──────────────────── Access plumbing ────────────────────

// accessContext assembles the viewer's evaluation context, loading purchased
// ticket ids for authenticated viewers.
func (s *Server) accessContext(claims *auth.Claims) access.Context {
	if claims == nil {
		return access.Context{}
	}
	var ids []string
	if eventIDs, err := s.ticketRepo.ListEventIDsByUser(claims.UserID); err == nil {
		ids = make([]string, len(eventIDs))
		for i, id := range eventIDs {
			ids[i] = id.String()
		}
	}
	return access.FromClaims(claims, ids, time.Now())
}

// writeAccessDenied maps a deny to the UX the client should show: log in,
// or buy a ticket.
func (s *Server) writeAccessDenied(w http.ResponseWriter, ctx access.Context, target *access.Target) {
	if !ctx.IsAuthenticated {
		httputil.WriteError(w, http.StatusUnauthorized, "login_required", "sign in to play this content")
		return
	}
	if target.IsTicketed && !ctx.HasTicket(target.ID) {
		httputil.WriteError(w, http.StatusForbidden, "ticket_required", "a ticket is required for this premiere")
		return
	}
	httputil.WriteError(w, http.StatusForbidden, "forbidden", "access denied")
}

// ownedContent loads the item and enforces creator ownership. Authority and
// admin bypass ownership for moderation.
func (s *Server) ownedContent(w http.ResponseWriter, r *http.Request) (*models.ContentItem, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return nil, false
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return nil, false
	}
	if item.CreatorID != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAuthority) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your content")
		return nil, false
	}
	return item, true
}

func (s *Server) publishContent(item *models.ContentItem) {
	doc := curation.FromModel(item)
	if err := s.feed.Publish(curation.ContentPath(doc.ID), doc); err != nil {
		// The rollup job republishes on the next pass; playback still works.
		return
	}
}

func (s *Server) enqueueContentFanout(item *models.ContentItem) {
	id := item.ID
	s.jobQueue.Enqueue(jobs.TaskNotifyFanout, jobs.NotifyFanoutPayload{
		CreatorID: item.CreatorID.String(),
		Type:      string(models.NotifyNewContent),
		Title:     "New from " + item.CreatorName,
		Body:      item.Title,
		RefID:     id.String(),
	})
}
