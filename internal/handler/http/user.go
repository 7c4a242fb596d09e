package http

import (
	"net/http"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/service"
	"github.com/Arifulit/job-portal-server/pkg/httputil"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	service *service.UserService
	errors  *httputil.ErrorWriter
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, errs *httputil.ErrorWriter) *UserHandler {
	return &UserHandler{service: svc, errors: errs}
}

// UpdateProfileRequest is the JSON request body for a profile update. Absent
// fields are left unchanged.
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=200"`
}

// GetProfile handles GET /api/v1/users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully", UserResponse{User: user})
}

// UpdateProfile handles PUT /api/v1/users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), domain.ProfileUpdate{
		FullName:    req.FullName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Profile updated successfully", UserResponse{User: user})
}

// DeleteAccount handles DELETE /api/v1/users/account
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Account deleted successfully", nil)
}
