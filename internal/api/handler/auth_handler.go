package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/app/service"
	"podpal/internal/common"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes mounts the public auth routes. limit wraps the credential
// endpoints; pass nil to leave them unthrottled.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(operation string) func(http.Handler) http.Handler) {
	r.With(throttle(limit, "signup")...).Post("/signup", h.signup)
	r.With(throttle(limit, "login")...).Post("/login", h.login)
	r.Get("/password-requirements", h.passwordRequirements)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) passwordRequirements(w http.ResponseWriter, _ *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.authService.PasswordRequirements())
}

func throttle(limit func(string) func(http.Handler) http.Handler, operation string) []func(http.Handler) http.Handler {
	if limit == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{limit(operation)}
}
