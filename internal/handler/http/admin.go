package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/service"
	"github.com/Arifulit/job-portal-server/pkg/httputil"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
	"github.com/Arifulit/job-portal-server/pkg/pagination"
)

// AdminHandler serves user management endpoints for administrators.
type AdminHandler struct {
	service *service.AdminService
	errors  *httputil.ErrorWriter
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.AdminService, errs *httputil.ErrorWriter) *AdminHandler {
	return &AdminHandler{service: svc, errors: errs}
}

// UpdateStatusRequest toggles a user's active flag.
type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// UpdateVerificationRequest sets a user's verified flag.
type UpdateVerificationRequest struct {
	IsVerified *bool `json:"isVerified"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Users []domain.User   `json:"users"`
	Meta  pagination.Meta `json:"meta"`
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.FromQuery(q)

	filter := domain.UserFilter{
		Role:   strings.TrimSpace(q.Get("role")),
		Query:  strings.TrimSpace(q.Get("q")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if raw := q.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteFailure(w, http.StatusBadRequest, "is_active must be true or false", nil)
			return
		}
		filter.IsActive = &active
	}

	users, total, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	httputil.WriteSuccess(w, http.StatusOK, "Users retrieved successfully", UserListResponse{
		Users: users,
		Meta:  pagination.NewMeta(total, page),
	})
}

// UpdateStatus handles PUT /api/v1/admin/users/{userId}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		httputil.WriteFailure(w, http.StatusBadRequest, "isActive is required", nil)
		return
	}

	user, err := h.service.SetActive(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), *req.IsActive)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	msg := "User deactivated successfully"
	if user.IsActive {
		msg = "User activated successfully"
	}
	httputil.WriteSuccess(w, http.StatusOK, msg, UserResponse{User: user})
}

// UpdateVerification handles PUT /api/v1/admin/users/{userId}/verify
func (h *AdminHandler) UpdateVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	var req UpdateVerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsVerified == nil {
		httputil.WriteFailure(w, http.StatusBadRequest, "isVerified is required", nil)
		return
	}

	user, err := h.service.SetVerified(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), *req.IsVerified)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "User verification updated successfully", UserResponse{User: user})
}

// DeleteUser handles DELETE /api/v1/admin/users/{userId}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), middleware.UserIDFromContext(r.Context()), id.String()); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "User deleted successfully", nil)
}
