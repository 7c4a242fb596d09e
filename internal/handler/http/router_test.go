package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Auth endpoints ---

func TestRegister_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        "Alice@Example.com",
		"password":     testPassword,
		"full_name":    "Alice Doe",
		"role":         "employer",
		"company_name": "Acme",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)

	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "alice@example.com", data.User["email"])
	assert.Equal(t, "employer", data.User["role"])
	assert.Equal(t, false, data.User["is_verified"])
	assert.NotEmpty(t, data.Tokens.AccessToken)
	assert.NotEmpty(t, data.Tokens.RefreshToken)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_DefaultsToJobSeeker(t *testing.T) {
	ts := newTestServer(t)

	data := ts.register(t, "seeker@example.com", "")
	assert.Equal(t, "job_seeker", data.User["role"])
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "root@example.com",
		"password":  testPassword,
		"full_name": "Root",
		"role":      "admin",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "Role must be one of")
}

func TestRegister_WeakPassword_ListsErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "weak@example.com",
		"password":  "short",
		"full_name": "Weak Password",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Password does not meet requirements", env.Message)

	var errs []string
	require.NoError(t, json.Unmarshal(env.Errors, &errs))
	assert.NotEmpty(t, errs)
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "dup@example.com", "recruiter")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "DUP@example.com",
		"password":  testPassword,
		"full_name": "Second Try",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with this email already exists", decodeEnvelope(t, rec).Message)
}

func TestRegister_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": testPassword,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Validation failed", env.Message)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Errors, &fields))
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "is required", fields["full_name"])
}

func TestRegister_MalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeEnvelope(t, rec).Message)
}

func TestRegister_WrongContentType(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`email=a`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestLogin_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "bob@example.com", "job_seeker")

	data := ts.login(t, "BOB@example.com", testPassword)
	assert.Equal(t, "bob@example.com", data.User["email"])
	assert.NotEmpty(t, data.Tokens.AccessToken)
}

func TestRegisterAndLogin_PaddedEmailIsTrimmed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "  Dana@Example.com ",
		"password":  testPassword,
		"full_name": " Dana Roe ",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data authData
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "dana@example.com", data.User["email"])

	login := ts.login(t, " dana@example.com  ", testPassword)
	assert.Equal(t, data.User["id"], login.User["id"])
}

func TestLogin_UnknownEmailAndWrongPassword_SameResponse(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "carol@example.com", "")

	wrong := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "carol@example.com", "password": "Wr0ng!Pass",
	})
	unknown := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, "Invalid email or password", decodeEnvelope(t, wrong).Message)
	assert.Equal(t, decodeEnvelope(t, wrong).Message, decodeEnvelope(t, unknown).Message)
}

func TestRefreshToken_Success(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "dave@example.com", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": data.Tokens.RefreshToken,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Token refreshed successfully", env.Message)

	var out AccessTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.NotEmpty(t, out.AccessToken)

	profile := ts.do(t, http.MethodGet, "/api/v1/auth/profile", out.AccessToken, nil)
	assert.Equal(t, http.StatusOK, profile.Code)
}

func TestRefreshToken_AccessTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "erin@example.com", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": data.Tokens.AccessToken,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_Missing(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "frank@example.com", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/logout", data.Tokens.AccessToken, map[string]string{
		"refreshToken": data.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Logged out successfully", decodeEnvelope(t, rec).Message)

	again := ts.do(t, http.MethodPost, "/api/v1/auth/logout", data.Tokens.AccessToken, map[string]string{
		"refreshToken": data.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, again.Code)

	refresh := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": data.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestChangePassword_Success(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "grace@example.com", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/change-password", data.Tokens.AccessToken, map[string]string{
		"oldPassword": testPassword,
		"newPassword": "N3w!Password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password changed successfully", decodeEnvelope(t, rec).Message)

	ts.login(t, "grace@example.com", "N3w!Password")

	refresh := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": data.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "heidi@example.com", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/change-password", data.Tokens.AccessToken, map[string]string{
		"oldPassword": "Wr0ng!Pass",
		"newPassword": "N3w!Password",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Current password is incorrect", decodeEnvelope(t, rec).Message)
	ts.login(t, "heidi@example.com", testPassword)
}

func TestProfile_RequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"missing", "", "Authorization header missing"},
		{"wrong scheme", "Basic abc", "Authorization header malformed"},
		{"garbage token", "Bearer not-a-jwt", "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.msg, decodeEnvelope(t, rec).Message)
		})
	}
}

func TestProfile_Success(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "ivan@example.com", "recruiter")

	rec := ts.do(t, http.MethodGet, "/api/v1/auth/profile", data.Tokens.AccessToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Profile retrieved successfully", env.Message)

	var out struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "ivan@example.com", out.User["email"])
	assert.Equal(t, "recruiter", out.User["role"])
}

// --- User endpoints ---

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "judy@example.com", "employer")

	rec := ts.do(t, http.MethodPut, "/api/v1/users/profile", data.Tokens.AccessToken, map[string]string{
		"full_name":    "  Judy Smith ",
		"company_name": "Globex",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	assert.Equal(t, "Judy Smith", out.User["full_name"])
	assert.Equal(t, "Globex", out.User["company_name"])
	assert.Equal(t, "employer", out.User["role"])
}

func TestUpdateProfile_NoFields(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "ken@example.com", "")

	rec := ts.do(t, http.MethodPut, "/api/v1/users/profile", data.Tokens.AccessToken, map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No fields to update", decodeEnvelope(t, rec).Message)
}

func TestDeleteAccount_InvalidatesAccessToken(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "leo@example.com", "")

	rec := ts.do(t, http.MethodDelete, "/api/v1/users/account", data.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	profile := ts.do(t, http.MethodGet, "/api/v1/users/profile", data.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, profile.Code)
	assert.Equal(t, "User not found or inactive", decodeEnvelope(t, profile).Message)
}

// --- Admin endpoints ---

func TestAdmin_NonAdminForbidden(t *testing.T) {
	ts := newTestServer(t)
	data := ts.register(t, "mallory@example.com", "employer")

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/users", data.Tokens.AccessToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to perform this action", decodeEnvelope(t, rec).Message)
}

func TestAdmin_ListUsers(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "emp@example.com", "employer")
	ts.register(t, "seek@example.com", "job_seeker")
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/users?role=employer&limit=10", admin.Tokens.AccessToken, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Users []map[string]any `json:"users"`
		Meta  map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	require.Len(t, out.Users, 1)
	assert.Equal(t, "emp@example.com", out.Users[0]["email"])
	assert.Equal(t, float64(1), out.Meta["total"])
	assert.Equal(t, float64(10), out.Meta["limit"])
}

func TestAdmin_ListUsers_BadFilters(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/users?is_active=maybe", admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/users?role=wizard", admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_DeactivateUser(t *testing.T) {
	ts := newTestServer(t)
	target := ts.register(t, "nina@example.com", "")
	admin := ts.loginAdmin(t)
	id := target.User["id"].(string)

	rec := ts.do(t, http.MethodPut, "/api/v1/admin/users/"+id+"/status", admin.Tokens.AccessToken, map[string]bool{
		"isActive": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User deactivated successfully", decodeEnvelope(t, rec).Message)

	login := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nina@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, login.Code)
	assert.Equal(t, "Account is deactivated", decodeEnvelope(t, login).Message)

	profile := ts.do(t, http.MethodGet, "/api/v1/auth/profile", target.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, profile.Code)

	refresh := ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": target.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestAdmin_UpdateStatus_MissingFlag(t *testing.T) {
	ts := newTestServer(t)
	target := ts.register(t, "oscar@example.com", "")
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/admin/users/"+target.User["id"].(string)+"/status",
		admin.Tokens.AccessToken, map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "isActive is required", decodeEnvelope(t, rec).Message)
}

func TestAdmin_CannotDeactivateSelf(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/admin/users/"+admin.User["id"].(string)+"/status",
		admin.Tokens.AccessToken, map[string]bool{"isActive": false})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_VerifyUser(t *testing.T) {
	ts := newTestServer(t)
	target := ts.register(t, "peggy@example.com", "")
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/admin/users/"+target.User["id"].(string)+"/verify",
		admin.Tokens.AccessToken, map[string]bool{"isVerified": true})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	assert.Equal(t, true, out.User["is_verified"])
}

func TestAdmin_DeleteUser(t *testing.T) {
	ts := newTestServer(t)
	target := ts.register(t, "quinn@example.com", "")
	admin := ts.loginAdmin(t)
	path := "/api/v1/admin/users/" + target.User["id"].(string)

	rec := ts.do(t, http.MethodDelete, path, admin.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, path, admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_InvalidUserID(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	rec := ts.do(t, http.MethodDelete, "/api/v1/admin/users/not-a-uuid", admin.Tokens.AccessToken, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Infrastructure routes ---

func TestHealthLive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute_Envelope(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decodeEnvelope(t, rec).Message)
}
