package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
	"podpal/internal/common/security"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router, limit func(operation string) func(http.Handler) http.Handler) {
	r.With(append(throttle(limit, "admin_signup"), middleware.OptionalIdentity)...).Post("/signup", h.signup)
	r.With(throttle(limit, "admin_login")...).Post("/login", h.login)

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Get("/users", h.listUsers)
		adminRouter.Get("/stats", h.stats)
	})
}

func (h *AdminHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.AdminSignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var caller *security.Identity
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		caller = &identity
	}

	resp, err := h.adminService.Signup(r.Context(), caller, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.adminService.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /admin/users?page=1&limit=20
func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.adminService.ListUsers(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}
