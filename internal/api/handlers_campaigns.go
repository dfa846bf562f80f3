package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/models"
)

type CreateCampaignRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CoverURL    *string    `json:"cover_url"`
	GoalCents   int64      `json:"goal_cents"`
	Deadline    *time.Time `json:"deadline"`
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 24)
	campaigns, err := s.campaignRepo.ListActive(limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list campaigns")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignByPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" || req.GoalCents <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "title, description and a positive goal are required")
		return
	}

	campaign := &models.Campaign{
		CreatorID:   s.getUserID(r),
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		GoalCents:   req.GoalCents,
		Deadline:    req.Deadline,
	}
	if err := s.campaignRepo.Create(campaign); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create campaign")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, campaign)
}

type SetCampaignStatusRequest struct {
	Status models.CampaignStatus `json:"status"`
}

func (s *Server) handleSetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignByPath(w, r)
	if !ok {
		return
	}
	if campaign.CreatorID != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAuthority) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your campaign")
		return
	}

	var req SetCampaignStatusRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	switch req.Status {
	case models.CampaignActive, models.CampaignFunded, models.CampaignClosed:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown status")
		return
	}

	if err := s.campaignRepo.SetStatus(campaign.ID, req.Status); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to set status")
		return
	}
	campaign.Status = req.Status
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

type CreatePledgeRequest struct {
	AmountCents int64   `json:"amount_cents"`
	Reference   *string `json:"reference"`
}

func (s *Server) handleCreatePledge(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignByPath(w, r)
	if !ok {
		return
	}
	if campaign.Status != models.CampaignActive {
		httputil.WriteError(w, http.StatusConflict, "conflict", "campaign is not accepting pledges")
		return
	}

	var req CreatePledgeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.AmountCents <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "pledge amount must be positive")
		return
	}

	pledge := &models.Pledge{
		CampaignID:  campaign.ID,
		UserID:      s.getUserID(r),
		AmountCents: req.AmountCents,
		Reference:   req.Reference,
	}
	updated, err := s.campaignRepo.AddPledge(pledge)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "conflict", "failed to record pledge")
		return
	}

	// Funding crossing the goal is worth telling the creator about.
	if updated.PledgedCents >= updated.GoalCents && updated.PledgedCents-req.AmountCents < updated.GoalCents {
		campaignID := updated.ID
		s.notifier.NotifyUser(updated.CreatorID, models.NotifyCampaign,
			"Campaign funded!", updated.Title+" reached its goal", &campaignID)
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"pledge":   pledge,
		"campaign": updated,
	})
}

func (s *Server) handleListPledges(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.campaignByPath(w, r)
	if !ok {
		return
	}
	if campaign.CreatorID != s.getUserID(r) && !s.auth.CheckPermission(s.getUserRole(r), models.RoleAuthority) {
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "not your campaign")
		return
	}
	pledges, err := s.campaignRepo.ListPledges(campaign.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list pledges")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pledges)
}

func (s *Server) campaignByPath(w http.ResponseWriter, r *http.Request) (*models.Campaign, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid campaign id")
		return nil, false
	}
	campaign, err := s.campaignRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "campaign not found")
		return nil, false
	}
	return campaign, true
}
