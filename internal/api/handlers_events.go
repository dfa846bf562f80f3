package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/access"
	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/jobs"
	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/repository"
)

type CreateEventRequest struct {
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	IsTicketed       bool      `json:"is_ticketed"`
	TicketPriceCents *int      `json:"ticket_price_cents"`
	ScheduledAt      time.Time `json:"scheduled_at"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r, 24)
	events, err := s.eventRepo.ListUpcoming(limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return
	}
	// The stream URL is access gated; strip it from the public view.
	event.StreamURL = nil
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title == "" || req.ScheduledAt.IsZero() {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "title and scheduled_at are required")
		return
	}
	if req.IsTicketed && (req.TicketPriceCents == nil || *req.TicketPriceCents <= 0) {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "ticketed events need a positive ticket price")
		return
	}

	event := &models.Event{
		CreatorID:        s.getUserID(r),
		Title:            req.Title,
		Description:      req.Description,
		IsTicketed:       req.IsTicketed,
		TicketPriceCents: req.TicketPriceCents,
		ScheduledAt:      req.ScheduledAt,
	}
	if err := s.eventRepo.Create(event); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create event")
		return
	}

	id := event.ID
	s.jobQueue.Enqueue(jobs.TaskNotifyFanout, jobs.NotifyFanoutPayload{
		CreatorID: event.CreatorID.String(),
		Type:      string(models.NotifyPremiere),
		Title:     "Premiere announced",
		Body:      event.Title,
		RefID:     id.String(),
	})
	httputil.WriteJSON(w, http.StatusCreated, event)
}

type StartEventRequest struct {
	StreamURL string `json:"stream_url"`
}

func (s *Server) handleStartEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.ownedEvent(w, r)
	if !ok {
		return
	}
	var req StartEventRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.StreamURL == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "stream_url is required")
		return
	}

	started, err := s.eventRepo.Start(event.ID, req.StreamURL)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "conflict", "event is not in a startable state")
		return
	}

	s.wsHub.BroadcastChannel("premiere:"+started.ID.String(), "premiere:live", started)
	s.wsHub.Broadcast("premiere:started", map[string]string{"event_id": started.ID.String(), "title": started.Title})
	httputil.WriteJSON(w, http.StatusOK, started)
}

type EndEventRequest struct {
	// Optional recorded replay to attach.
	ContentID *string `json:"content_id"`
}

func (s *Server) handleEndEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.ownedEvent(w, r)
	if !ok {
		return
	}
	var req EndEventRequest
	httputil.ReadJSON(r, &req)

	var contentID *uuid.UUID
	if req.ContentID != nil {
		id, err := uuid.Parse(*req.ContentID)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
			return
		}
		contentID = &id
	}

	ended, err := s.eventRepo.End(event.ID, contentID)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "conflict", "event is not live")
		return
	}

	s.wsHub.BroadcastChannel("premiere:"+ended.ID.String(), "premiere:ended", ended)
	httputil.WriteJSON(w, http.StatusOK, ended)
}

// handleWatchEvent gates the live stream URL. Ticket checks only bite while
// the event is ticketed; completed events point at the replay content.
func (s *Server) handleWatchEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return
	}

	claims := s.optionalClaims(r)
	ctx := s.accessContext(claims)
	target := &access.Target{
		ID:         event.ID.String(),
		IsTicketed: event.IsTicketed,
		Status:     event.Status,
	}
	if !access.HasAccess(ctx, target) {
		s.writeAccessDenied(w, ctx, target)
		return
	}

	switch event.Status {
	case models.EventLive:
		if event.StreamURL == nil {
			httputil.WriteError(w, http.StatusConflict, "conflict", "stream not available")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"stream_url": *event.StreamURL})
	case models.EventCompleted:
		if event.ContentID == nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", "no replay available")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"content_id": event.ContentID.String()})
	default:
		httputil.WriteError(w, http.StatusConflict, "not_live", "premiere has not started")
	}
}

func (s *Server) handleBuyTicket(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return
	}
	if !event.IsTicketed {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "event is not ticketed")
		return
	}
	if event.Status == models.EventCompleted {
		httputil.WriteError(w, http.StatusConflict, "conflict", "event has ended")
		return
	}

	if held, err := s.ticketRepo.Exists(event.ID, s.getUserID(r)); err == nil && held {
		httputil.WriteError(w, http.StatusConflict, "already_purchased", "you already hold a ticket")
		return
	}

	var req struct {
		Reference *string `json:"reference"`
	}
	httputil.ReadJSON(r, &req)

	amount := 0
	if event.TicketPriceCents != nil {
		amount = *event.TicketPriceCents
	}
	ticket := &models.Ticket{
		EventID:     event.ID,
		UserID:      s.getUserID(r),
		AmountCents: amount,
		Reference:   req.Reference,
	}
	if err := s.ticketRepo.Create(ticket); err != nil {
		if err == repository.ErrAlreadyPurchased {
			httputil.WriteError(w, http.StatusConflict, "already_purchased", "you already hold a ticket")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create ticket")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ticket)
}

// handleListTickets shows the event owner who bought in.
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	event, ok := s.ownedEvent(w, r)
	if !ok {
		return
	}
	tickets, err := s.ticketRepo.ListByEvent(event.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list tickets")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return
	}
	limit, _ := pagination(r, 100)
	messages, err := s.chatRepo.ListRecent(event.ID, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list chat")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messages)
}

type PostChatRequest struct {
	Body string `json:"body"`
}

// handlePostChat requires the same access as watching: no chat from outside
// the room.
func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return
	}
	if event.Status != models.EventLive {
		httputil.WriteError(w, http.StatusConflict, "not_live", "chat is only open while the premiere is live")
		return
	}

	claims := s.optionalClaims(r)
	ctx := s.accessContext(claims)
	target := &access.Target{ID: event.ID.String(), IsTicketed: event.IsTicketed, Status: event.Status}
	if !access.HasAccess(ctx, target) {
		s.writeAccessDenied(w, ctx, target)
		return
	}

	var req PostChatRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "message body is empty")
		return
	}
	if len(body) > s.config.ChatMaxLength {
		httputil.WriteError(w, http.StatusBadRequest, "too_long", "message exceeds maximum length")
		return
	}

	msg := &models.ChatMessage{
		EventID:  event.ID,
		UserID:   s.getUserID(r),
		Username: r.Header.Get("X-Username"),
		Body:     body,
	}
	if err := s.chatRepo.Create(msg); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to post message")
		return
	}

	s.wsHub.BroadcastChannel("premiere:"+event.ID.String(), "chat:message", msg)
	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// ──────────────────── Helpers ────────────────────

func (s *Server) eventByPath(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return nil, false
	}
	event, err := s.eventRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "event not found")
		return nil, false
	}
	return event, true
}

func (s *Server) ownedEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	event, ok := s.eventByPath(w, r)
	if !ok {
		return nil, false
	}
	if event.CreatorID != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAuthority) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your event")
		return nil, false
	}
	return event, true
}
