package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/magiclink/pkg/logger"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

// Payload is the webhook request body.
type Payload struct {
	Expires    *time.Time `json:"expires,omitempty"`
	Theme      *Theme     `json:"theme,omitempty"`
	Identifier string     `json:"identifier"`
	URL        string     `json:"url"`
	Token      string     `json:"token,omitempty"`
}

// Theme is the optional branding block of Payload.
type Theme struct {
	BrandColor string `json:"brand_color,omitempty"`
	ButtonText string `json:"button_text,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// Request converts the payload.
func (p *Payload) Request() *verification.Request {
	req := &verification.Request{
		Identifier: strings.TrimSpace(p.Identifier),
		URL:        strings.TrimSpace(p.URL),
		Token:      p.Token,
	}
	if p.Expires != nil {
		req.Expires = *p.Expires
	}
	if p.Theme != nil {
		req.Theme = verification.Theme{BrandColor: p.Theme.BrandColor, ButtonText: p.Theme.ButtonText}
	}
	return req
}

func (s *Server) handleVerificationRequest(w http.ResponseWriter, r *http.Request) {
	var p Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body", nil)
		return
	}

	err := s.provider.Send(r.Context(), p.Request())
	if err == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	status, msg := statusFor(err)
	var details []string
	var verr *verification.VendorError
	if errors.As(err, &verr) {
		details = verr.Details
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "verification request failed", slog.Any("error", err))
	}
	writeError(w, r, status, msg, details)
}

// statusFor maps dispatch errors to HTTP statuses. Missing request fields
// are the caller's fault; other serialization failures mean the service
// itself is misconfigured.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, verification.ErrMissingIdentifier):
		return http.StatusBadRequest, "identifier is required"
	case errors.Is(err, verification.ErrMissingURL):
		return http.StatusBadRequest, "url is required"
	case errors.Is(err, verification.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"
	case errors.Is(err, verification.ErrVendorRejected):
		return http.StatusBadGateway, "email vendor rejected the message"
	case errors.Is(err, verification.ErrNetwork),
		errors.Is(err, verification.ErrCanceled):
		return http.StatusGatewayTimeout, "email vendor unreachable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     msg,
		Details:   details,
		RequestID: logger.RequestID(r.Context()),
	})
}
