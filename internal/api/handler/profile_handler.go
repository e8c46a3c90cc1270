package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.me)
	r.Patch("/", h.update)
}

func (h *ProfileHandler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	profile, err := h.profileService.Me(r.Context(), identity.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.profileService.Update(r.Context(), identity.Subject, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}
