package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/jobs"
)

// handleHomeFeed serves the current composed home snapshot. The compositor
// keeps it hot; this handler never touches Postgres.
func (s *Server) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.compositor.Snapshot())
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := s.layoutRepo.GetLayout()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to load layout")
		return
	}
	slots, err := s.layoutRepo.GetSlots()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to load slots")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"layout": layout,
		"slots":  slots,
	})
}

// handleUpdateLayout replaces the curated layout document. Internal entries
// are validated against the catalog so a typo cannot wedge the feed.
func (s *Server) handleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	var doc curation.LayoutDoc
	if err := httputil.ReadJSON(r, &doc); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid layout document")
		return
	}

	for _, entry := range append(append([]curation.LayoutEntry{}, doc.FeaturedItems...), doc.TrendingItems...) {
		if entry.Kind == curation.EntryInternal {
			if _, err := uuid.Parse(entry.Internal.ContentID); err != nil {
				httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id in layout: "+entry.Internal.ContentID)
				return
			}
		}
	}

	if err := s.layoutRepo.SaveLayout(&doc); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to save layout")
		return
	}
	if err := s.feed.Publish(curation.LayoutPath, &doc); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to publish layout")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &doc)
}

type AssignSlotRequest struct {
	ContentID string `json:"content_id"`
	IsLocked  bool   `json:"is_locked"`
}

// handleAssignSlot pins content into a slot. Assigning usually comes with a
// lock so the next rotation leaves it alone.
func (s *Server) handleAssignSlot(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > 6 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "slot number must be 1-6")
		return
	}
	var req AssignSlotRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	slot := curation.Slot{IsLocked: req.IsLocked}
	if req.ContentID != "" {
		id, err := uuid.Parse(req.ContentID)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid content id")
			return
		}
		item, err := s.contentRepo.GetByID(id)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
		c := curation.FromModel(item)
		slot.Content = &c
	}

	if err := s.layoutRepo.SaveSlot(n, slot); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to save slot")
		return
	}
	s.publishSlots(w)
}

type LockSlotRequest struct {
	IsLocked bool `json:"is_locked"`
}

func (s *Server) handleLockSlot(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > 6 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "slot number must be 1-6")
		return
	}
	var req LockSlotRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if err := s.layoutRepo.SetSlotLock(n, req.IsLocked); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to set slot lock")
		return
	}
	s.publishSlots(w)
}

// publishSlots reloads the slots doc and pushes it through the feed, then
// responds with it.
func (s *Server) publishSlots(w http.ResponseWriter) {
	doc, err := s.layoutRepo.GetSlots()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to reload slots")
		return
	}
	if err := s.feed.Publish(curation.SlotsPath, doc); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to publish slots")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (s *Server) handleTriggerRotation(w http.ResponseWriter, r *http.Request) {
	id, err := s.jobQueue.EnqueueUnique(jobs.TaskRotateSlots, jobs.RotateSlotsPayload{Force: true}, "slots:rotate")
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "failed to enqueue rotation")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}
