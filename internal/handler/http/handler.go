package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/Arifulit/job-portal-server/pkg/httputil"
	"github.com/Arifulit/job-portal-server/pkg/validator"
)

const maxBodyBytes = 1 << 20 // 1MB

// decodeJSON reads a bounded JSON body into dst and validates it. On failure
// it writes the error envelope and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := validator.DecodeAndValidate(r, dst)
	if err == nil {
		return true
	}

	var (
		valErr *validator.ValidationError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &valErr):
		httputil.WriteValidationError(w, err)
	case errors.As(err, &maxErr):
		httputil.WriteFailure(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	case errors.Is(err, io.EOF):
		httputil.WriteFailure(w, http.StatusBadRequest, "Request body is required", nil)
	default:
		httputil.WriteFailure(w, http.StatusBadRequest, "Invalid request body", nil)
	}
	return false
}
