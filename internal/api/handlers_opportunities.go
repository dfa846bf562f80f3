package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/models"
)

type OpportunityRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    *string    `json:"location"`
	ContactURL  *string    `json:"contact_url"`
	Deadline    *time.Time `json:"deadline"`
	IsActive    *bool      `json:"is_active"`
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 24)
	opportunities, err := s.opportunityRepo.ListActive(r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list opportunities")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opportunities)
}

func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, ok := s.opportunityByPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opp)
}

func (s *Server) handleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req OpportunityRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" || req.Category == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "title, description and category are required")
		return
	}

	opp := &models.Opportunity{
		PostedBy:    s.getUserID(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ContactURL:  req.ContactURL,
		Deadline:    req.Deadline,
	}
	if err := s.opportunityRepo.Create(opp); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create opportunity")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, opp)
}

func (s *Server) handleUpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, ok := s.opportunityByPath(w, r)
	if !ok {
		return
	}
	if opp.PostedBy != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAdmin) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your posting")
		return
	}

	var req OpportunityRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title != "" {
		opp.Title = req.Title
	}
	if req.Description != "" {
		opp.Description = req.Description
	}
	if req.Category != "" {
		opp.Category = req.Category
	}
	if req.Location != nil {
		opp.Location = req.Location
	}
	if req.ContactURL != nil {
		opp.ContactURL = req.ContactURL
	}
	if req.Deadline != nil {
		opp.Deadline = req.Deadline
	}
	if err := s.opportunityRepo.Update(opp); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update opportunity")
		return
	}
	if req.IsActive != nil && *req.IsActive != opp.IsActive {
		if err := s.opportunityRepo.SetActive(opp.ID, *req.IsActive); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update opportunity")
			return
		}
		opp.IsActive = *req.IsActive
	}
	httputil.WriteJSON(w, http.StatusOK, opp)
}

type ApplyRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleApplyOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, ok := s.opportunityByPath(w, r)
	if !ok {
		return
	}
	if !opp.IsActive || (opp.Deadline != nil && opp.Deadline.Before(time.Now())) {
		httputil.WriteError(w, http.StatusConflict, "closed", "opportunity is closed")
		return
	}

	var req ApplyRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "application message is required")
		return
	}

	app := &models.OpportunityApplication{
		OpportunityID: opp.ID,
		UserID:        s.getUserID(r),
		Message:       req.Message,
	}
	if err := s.opportunityRepo.CreateApplication(app); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to submit application")
		return
	}

	oppID := opp.ID
	s.notifier.NotifyUser(opp.PostedBy, models.NotifyOpportunity,
		"New application", "Someone applied to "+opp.Title, &oppID)
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	opp, ok := s.opportunityByPath(w, r)
	if !ok {
		return
	}
	if opp.PostedBy != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAdmin) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your posting")
		return
	}
	apps, err := s.opportunityRepo.ListApplications(opp.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list applications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (s *Server) opportunityByPath(w http.ResponseWriter, r *http.Request) (*models.Opportunity, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid opportunity id")
		return nil, false
	}
	opp, err := s.opportunityRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "opportunity not found")
		return nil, false
	}
	return opp, true
}
