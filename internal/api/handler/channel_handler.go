package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
)

type ChannelHandler struct {
	channelService *service.ChannelService
}

func NewChannelHandler(cs *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: cs}
}

func (h *ChannelHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{channelID}", h.getChannel)       // GET /api/v1/channels/{id}
	r.Get("/slug/{channelSlug}", h.getBySlug) // GET /api/v1/channels/slug/alices-channel-1a2b3c4d

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/{channelID}/subscribe", h.subscribe)
		authed.Delete("/{channelID}/subscribe", h.unsubscribe)
	})
}

func (h *ChannelHandler) getChannel(w http.ResponseWriter, r *http.Request) {
	page, err := h.channelService.Get(r.Context(), chi.URLParam(r, "channelID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *ChannelHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	page, err := h.channelService.GetBySlug(r.Context(), chi.URLParam(r, "channelSlug"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *ChannelHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	if err := h.channelService.Subscribe(r.Context(), chi.URLParam(r, "channelID"), identity.Subject); err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Subscribed"})
}

func (h *ChannelHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	if err := h.channelService.Unsubscribe(r.Context(), chi.URLParam(r, "channelID"), identity.Subject); err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Unsubscribed"})
}
