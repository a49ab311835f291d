package auth

import (
	"errors"
	"net/http"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
)

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

/*
 * VerifyEmailHandler redeems an email verification token and marks the
 * account's address as verified. Accepts the token either as a query
 * parameter (link click) or in the request body. The token redeems
 * exactly once; a second call with the same token fails.
 *
 * Responses:
 *   - 200: Email verified
 *   - 400: Token absent, consumed, or expired
 *   - 500: Server error
 */
func (h *Handler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := httputil.GetQueryParam(r, "token")
	if token == "" && r.Method == http.MethodPost {
		var req VerifyEmailRequest
		if err := httputil.ParseJSONBody(r, &req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "Token is required")
		return
	}

	userID, err := h.db.ConsumeVerificationToken(token, models.TokenPurposeEmailVerify)
	if err != nil {
		if errors.Is(err, db.ErrTokenInvalid) {
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		debug.Error("Failed to consume verification token: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.MarkEmailVerified(userID); err != nil {
		debug.Error("Failed to mark email verified: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	debug.Info("Email verified for user %s", userID)
	httputil.RespondWithSuccess(w, http.StatusOK)
}

/*
 * ResendVerificationHandler issues a fresh verification token for an
 * unverified account. The response is identical whether or not the
 * address is registered.
 *
 * Request body expects JSON:
 * {
 *   "email": "string"
 * }
 *
 * Responses:
 *   - 200: Always, with a generic message
 *   - 400: Invalid request format
 */
func (h *Handler) ResendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	const message = "If that email address is registered and unverified, a new link has been sent"

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			debug.Error("Failed to look up user for verification resend: %v", err)
		}
		httputil.RespondWithData(w, http.StatusOK, map[string]string{"message": message})
		return
	}

	if user.EmailVerifiedAt != nil {
		httputil.RespondWithData(w, http.StatusOK, map[string]string{"message": message})
		return
	}

	if err := h.db.InvalidateUserTokens(user.ID, models.TokenPurposeEmailVerify); err != nil {
		debug.Error("Failed to invalidate previous verification tokens: %v", err)
	}

	h.sendVerificationToken(r, user)
	httputil.RespondWithData(w, http.StatusOK, map[string]string{"message": message})
}
