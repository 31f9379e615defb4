package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
)

// Error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeUnauthorized     = "unauthorised"
	ErrCodeForbidden        = "forbidden"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeMissingKey       = "missing_api_key"
	ErrCodeInvalidKey       = "invalid_api_key"
	ErrCodeInvalidToken     = "invalid_token"
	ErrCodeOriginNotAllowed = "origin_not_allowed"
	ErrCodeIPNotAllowed     = "ip_not_allowed"
	ErrCodeFeature          = "feature_not_allowed"
	ErrCodeRateLimited      = "rate_limit_exceeded"
)

// body is a JSON response object. Error bodies always carry success,
// code and message; details are merged in.
type body map[string]any

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes {success:false, code, message} plus details.
func writeError(w http.ResponseWriter, status int, code, message string, details body) {
	b := body{"success": false, "code": code, "message": message}
	for k, v := range details {
		b[k] = v
	}
	writeJSON(w, status, b)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func writeInternalError(w http.ResponseWriter, message string, err error) {
	var details body
	if err != nil {
		details = body{"error": err.Error()}
	}
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message, details)
}

// writeValidationError answers a *contact.ValidationError with 400.
func writeValidationError(w http.ResponseWriter, err error) {
	var ve *contact.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, ve.Reason, body{"fields": ve.Fields})
		return
	}
	writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
}

// writeGateError maps a gate rejection to its status and body.
func writeGateError(w http.ResponseWriter, err error, now time.Time) {
	var (
		rl   *gate.RateLimitError
		orig *gate.OriginError
		addr *gate.AddressError
		feat *gate.FeatureError
	)

	switch {
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(now)))
		writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, gate.ErrRateLimitExceeded.Error(), body{
			"limit":   rl.Limit,
			"window":  rl.Window,
			"resetAt": rl.ResetAt.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &orig):
		writeError(w, http.StatusForbidden, ErrCodeOriginNotAllowed, "Origin not allowed for this project", body{
			"yourOrigin":     orig.Origin,
			"allowedOrigins": orig.Allowed,
			"note":           "Local files and localhost are allowed for development",
		})
	case errors.As(err, &addr):
		writeError(w, http.StatusForbidden, ErrCodeIPNotAllowed, "Access denied from this IP address", body{
			"yourIP": addr.Address,
		})
	case errors.As(err, &feat):
		writeError(w, http.StatusForbidden, ErrCodeFeature, "Feature '"+feat.Feature+"' not allowed for this project", body{
			"project":         feat.Project,
			"allowedFeatures": feat.Allowed,
		})
	case errors.Is(err, gate.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, ErrCodeMissingKey,
			"Project API key required. Include x-api-key header or Authorization: Bearer <key>", body{
				"documentation": "Contact admin to get your project API key",
			})
	case errors.Is(err, gate.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidToken, "Invalid or expired token", nil)
	case errors.Is(err, gate.ErrUnknownCredential):
		writeError(w, http.StatusForbidden, ErrCodeInvalidKey, "Invalid project API key", body{
			"hint": "This API key is not authorized for any project",
		})
	default:
		writeInternalError(w, "internal server error", nil)
	}
}
