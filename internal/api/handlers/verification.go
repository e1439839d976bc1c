package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/api/middleware"
	"github.com/budgetai/insights/internal/verification"
)

// tokenTTL is the lifetime of tokens issued after a confirmed code.
const tokenTTL = 24 * time.Hour

// VerificationHandler issues and confirms one-time codes. A confirmed code is
// exchanged for a bearer token whose subject is the verified address.
type VerificationHandler struct {
	codes  *verification.Codes
	secret []byte
	log    zerolog.Logger
}

// NewVerificationHandler creates a new verification handler.
func NewVerificationHandler(codes *verification.Codes, secret []byte, log zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{
		codes:  codes,
		secret: secret,
		log:    log,
	}
}

// RequestCode handles POST /api/verification/request
func (h *VerificationHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := verification.NormalizeAddress(req.Email)
	if email == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.codes.Issue(r.Context(), email); err != nil {
		h.log.Error().Err(err).Msg("Failed to issue verification code")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Verification code sent successfully",
		"email":   email,
	})
}

// ConfirmCode handles POST /api/verification/confirm
func (h *VerificationHandler) ConfirmCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and code are required")
		return
	}

	err := h.codes.Verify(req.Email, req.Code)
	switch {
	case errors.Is(err, verification.ErrNotFound):
		middleware.WriteError(w, http.StatusBadRequest, "No verification code found. Please request a new one.")
		return
	case errors.Is(err, verification.ErrExpired):
		middleware.WriteError(w, http.StatusBadRequest, "Verification code has expired. Please request a new one.")
		return
	case errors.Is(err, verification.ErrMismatch):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid verification code")
		return
	case errors.Is(err, verification.ErrTooManyAttempts):
		middleware.WriteError(w, http.StatusTooManyRequests, "Too many attempts. Please request a new code.")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to verify code")
		middleware.WriteError(w, http.StatusInternalServerError, "Verification failed")
		return
	}

	email := verification.NormalizeAddress(req.Email)
	token, err := middleware.NewToken(h.secret, email, tokenTTL)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to sign token")
		middleware.WriteError(w, http.StatusInternalServerError, "Verification failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully",
		"token":   token,
	})
}
