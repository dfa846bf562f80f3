package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/models"
)

type CreateReportRequest struct {
	ContentID string  `json:"content_id"`
	Reason    string  `json:"reason"`
	Detail    *string `json:"detail"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	if req.Reason == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "reason is required")
		return
	}
	if _, err := s.contentRepo.GetByID(contentID); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}

	report := &models.Report{
		ReporterID: s.getUserID(r),
		ContentID:  contentID,
		Reason:     req.Reason,
		Detail:     req.Detail,
	}
	if err := s.reportRepo.Create(report); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to create report")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	status := models.ReportStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.ReportOpen
	}
	limit, offset := pagination(r, 50)
	reports, err := s.reportRepo.ListByStatus(status, limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to list reports")
		return
	}
	openCount, err := s.reportRepo.CountOpen()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to count reports")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports":    reports,
		"open_count": openCount,
	})
}

type ResolveReportRequest struct {
	// "resolved" takes the content down; "dismissed" leaves it up.
	Status models.ReportStatus `json:"status"`
}

func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid report id")
		return
	}
	var req ResolveReportRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Status != models.ReportResolved && req.Status != models.ReportDismissed {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "status must be resolved or dismissed")
		return
	}

	if _, err := s.reportRepo.GetByID(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "report not found")
		return
	}
	report, err := s.reportRepo.Resolve(id, s.getUserID(r), req.Status)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "conflict", "report is not open")
		return
	}

	if req.Status == models.ReportResolved {
		s.deactivateContent(w, report.ContentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeactivateContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	s.deactivateContent(w, id)
}

// deactivateContent hides the item and republishes its live document so every
// feed drops it immediately.
func (s *Server) deactivateContent(w http.ResponseWriter, id uuid.UUID) {
	if err := s.contentRepo.SetActive(id, false); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to deactivate content")
		return
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	s.publishContent(item)

	s.notifier.NotifyUser(item.CreatorID, models.NotifyModeration,
		"Content removed", item.Title+" was taken down by moderation", &item.ID)
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) handleActivateContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	if err := s.contentRepo.SetActive(id, true); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to activate content")
		return
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	s.publishContent(item)
	httputil.WriteJSON(w, http.StatusOK, item)
}

type SetFeaturedRequest struct {
	Featured bool `json:"featured"`
}

func (s *Server) handleSetFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
		return
	}
	var req SetFeaturedRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if err := s.contentRepo.SetFeatured(id, req.Featured); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to update content")
		return
	}
	item, err := s.contentRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	s.publishContent(item)
	httputil.WriteJSON(w, http.StatusOK, item)
}

// handleClearChat wipes an event's chat log, typically after a raid.
func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid event id")
		return
	}
	if _, err := s.eventRepo.GetByID(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "event not found")
		return
	}
	if err := s.chatRepo.DeleteByEvent(id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to clear chat")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ──────────────────── Settings ────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.GetAll()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to load settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings persists key/value settings. Changes to scheduler
// cadence take effect on the next restart; the rest merge at boot.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := httputil.ReadJSON(r, &updates); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	for key, value := range updates {
		// An empty value clears the key so boot falls back to env defaults.
		if value == "" {
			if err := s.settingsRepo.Delete(key); err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to clear setting "+key)
				return
			}
			continue
		}
		if err := s.settingsRepo.Set(key, value); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to save setting "+key)
			return
		}
	}
	settings, err := s.settingsRepo.GetAll()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to reload settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}
