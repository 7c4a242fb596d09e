package http

import (
	"net/http"
	"strings"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/service"
	"github.com/Arifulit/job-portal-server/pkg/httputil"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	errors  *httputil.ErrorWriter
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, errs *httputil.ErrorWriter) *AuthHandler {
	return &AuthHandler{service: svc, errors: errs}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	FullName    string `json:"full_name" validate:"required,max=100"`
	Role        string `json:"role" validate:"omitempty,max=32"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	CompanyName string `json:"company_name" validate:"omitempty,max=200"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims surrounding whitespace the service would ignore anyway.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

// Normalize trims the email so padded input still passes validation.
func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// RefreshTokenRequest carries a refresh token for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// --- Response types ---

// AuthResponse wraps user data with tokens.
type AuthResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// AccessTokenResponse is returned by the refresh endpoint.
type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, tokens, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Role:        req.Role,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "User registered successfully", AuthResponse{User: user, Tokens: tokens})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Login successful", AuthResponse{User: user, Tokens: tokens})
}

// RefreshToken handles POST /api/v1/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	accessToken, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", AccessTokenResponse{AccessToken: accessToken})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), middleware.UserIDFromContext(r.Context()), req.RefreshToken); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

// Profile handles GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully", UserResponse{User: user})
}
