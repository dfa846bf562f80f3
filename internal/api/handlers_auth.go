package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/auth"
	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/version"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Creator  bool   `json:"creator,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    version.Load().Version,
		"ws_clients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "username and email are required")
		return
	}
	if err := auth.ValidatePassword(req.Password, 8, true); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}

	role := models.RoleUser
	if req.Creator {
		role = models.RoleCreator
	}
	user := &models.User{
		Username:     req.Username,
		Email:        auth.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		httputil.WriteError(w, http.StatusConflict, "conflict", "username or email already registered")
		return
	}

	user.PasswordHash = ""
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	// The username field accepts an email address too.
	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil && strings.Contains(req.Username, "@") {
		user, err = s.userRepo.GetByEmail(auth.NormalizeEmail(req.Username))
	}
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if !user.IsActive {
		httputil.WriteError(w, http.StatusForbidden, "account_disabled", "account is disabled")
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to generate token")
		return
	}

	user.PasswordHash = ""
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.userRepo.GetByID(s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	user.PasswordHash = ""
	httputil.WriteJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
	Country     *string `json:"country"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	user, err := s.userRepo.GetByID(s.getUserID(r))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Country != nil {
		user.Country = req.Country
	}

	if err := s.userRepo.UpdateProfile(user); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update profile")
		return
	}
	user.PasswordHash = ""
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	users, err := s.userRepo.List(limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list users")
		return
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

type SetRoleRequest struct {
	Role models.UserRole `json:"role"`
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	var req SetRoleRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleAuthority, models.RoleCreator, models.RoleUser:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}
	if err := s.userRepo.SetRole(id, req.Role); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to set role")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"role": string(req.Role)})
}

type SetPremiumRequest struct {
	// RFC 3339 timestamp, or null to clear premium.
	Until *string `json:"until"`
}

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	var req SetPremiumRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := s.userRepo.SetPremiumUntil(id, req.Until); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to set premium")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"until": req.Until})
}

type SetUserActiveRequest struct {
	Active bool `json:"active"`
}

// handleSetUserActive suspends or restores an account. Suspension blocks new
// logins; outstanding tokens remain valid until they expire.
func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	var req SetUserActiveRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if err := s.userRepo.SetActive(id, req.Active); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}
