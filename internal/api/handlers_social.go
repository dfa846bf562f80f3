package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/models"
)

// handleGetCreator is the public creator profile: the user record minus
// credentials, plus the follower count and, for a signed-in viewer, whether
// they already follow.
func (s *Server) handleGetCreator(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid creator id")
		return
	}
	creator, err := s.userRepo.GetByID(creatorID)
	if err != nil || !creator.IsActive {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "creator not found")
		return
	}
	creator.PasswordHash = ""
	creator.Email = ""

	followers, err := s.socialRepo.CountFollowers(creatorID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	resp := map[string]interface{}{
		"creator":        creator,
		"follower_count": followers,
	}
	if claims := s.optionalClaims(r); claims != nil {
		following, _ := s.socialRepo.IsFollowing(claims.UserID, creatorID)
		resp["following"] = following
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	follows, err := s.socialRepo.ListFollowing(s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list follows")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, follows)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid creator id")
		return
	}
	userID := s.getUserID(r)
	if creatorID == userID {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "cannot follow yourself")
		return
	}

	creator, err := s.userRepo.GetByID(creatorID)
	if err != nil || !creator.IsActive {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "creator not found")
		return
	}
	// A creator who blocked the viewer cannot be followed.
	if blocked, _ := s.socialRepo.IsBlocked(creatorID, userID); blocked {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "cannot follow this creator")
		return
	}

	if err := s.socialRepo.Follow(userID, creatorID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to follow")
		return
	}

	s.notifier.NotifyUser(creatorID, models.NotifyFollow,
		"New follower", r.Header.Get("X-Username")+" followed you", &userID)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"following": true})
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid creator id")
		return
	}
	if err := s.socialRepo.Unfollow(s.getUserID(r), creatorID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to unfollow")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"following": false})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	blockedID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	userID := s.getUserID(r)
	if blockedID == userID {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "cannot block yourself")
		return
	}
	if err := s.socialRepo.Block(userID, blockedID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to block")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"blocked": true})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	blockedID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	if err := s.socialRepo.Unblock(s.getUserID(r), blockedID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to unblock")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"blocked": false})
}

// ──────────────────── Notifications ────────────────────

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifs, err := s.notifRepo.ListByUser(s.getUserID(r), unreadOnly, limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list notifications")
		return
	}
	unread, _ := s.notifRepo.CountUnread(s.getUserID(r))
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifs,
		"unread_count":  unread,
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid notification id")
		return
	}
	if err := s.notifRepo.MarkRead(id, s.getUserID(r)); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to mark read")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifRepo.MarkAllRead(s.getUserID(r)); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to mark all read")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// ──────────────────── Webhook channels ────────────────────

type ChannelRequest struct {
	Name        string            `json:"name"`
	ChannelType string            `json:"channel_type"`
	WebhookURL  string            `json:"webhook_url"`
	Config      map[string]string `json:"config"`
	IsEnabled   *bool             `json:"is_enabled"`
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.notifRepo.ListChannels(s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list channels")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, channels)
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Name == "" || req.ChannelType == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "name and channel_type are required")
		return
	}

	channel := &models.NotificationChannel{
		UserID:      s.getUserID(r),
		Name:        req.Name,
		ChannelType: req.ChannelType,
		WebhookURL:  req.WebhookURL,
		Config:      marshalConfig(req.Config),
		IsEnabled:   req.IsEnabled == nil || *req.IsEnabled,
	}
	if err := s.notifRepo.CreateChannel(channel); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create channel")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, channel)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.ownedChannel(w, r)
	if !ok {
		return
	}
	var req ChannelRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Name != "" {
		channel.Name = req.Name
	}
	if req.ChannelType != "" {
		channel.ChannelType = req.ChannelType
	}
	if req.WebhookURL != "" {
		channel.WebhookURL = req.WebhookURL
	}
	if req.Config != nil {
		channel.Config = marshalConfig(req.Config)
	}
	if req.IsEnabled != nil {
		channel.IsEnabled = *req.IsEnabled
	}
	if err := s.notifRepo.UpdateChannel(channel); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update channel")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, channel)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.ownedChannel(w, r)
	if !ok {
		return
	}
	if err := s.notifRepo.DeleteChannel(channel.ID, s.getUserID(r)); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to delete channel")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": channel.ID.String()})
}

func (s *Server) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.ownedChannel(w, r)
	if !ok {
		return
	}
	if err := s.webhookSender.SendTest(channel); err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "delivery_failed", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"delivered": true})
}

func marshalConfig(config map[string]string) json.RawMessage {
	if config == nil {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func (s *Server) ownedChannel(w http.ResponseWriter, r *http.Request) (*models.NotificationChannel, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid channel id")
		return nil, false
	}
	channel, err := s.notifRepo.GetChannel(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "channel not found")
		return nil, false
	}
	if channel.UserID != s.getUserID(r) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your channel")
		return nil, false
	}
	return channel, true
}
