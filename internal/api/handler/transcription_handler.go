package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
	"podpal/internal/domain/model"
)

type TranscriptionHandler struct {
	transcriptionService *service.TranscriptionService
}

func NewTranscriptionHandler(ts *service.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{transcriptionService: ts}
}

func (h *TranscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.submit)
	r.Get("/{transcriptionID}", h.get)
}

type submitResponse struct {
	ID     string                    `json:"id"`
	Status model.TranscriptionStatus `json:"status"`
}

func (h *TranscriptionHandler) submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req service.TranscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	job, err := h.transcriptionService.Submit(r.Context(), identity.Subject, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, submitResponse{ID: job.ID, Status: job.Status})
}

func (h *TranscriptionHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	job, err := h.transcriptionService.Get(r.Context(), identity.Subject, chi.URLParam(r, "transcriptionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}
