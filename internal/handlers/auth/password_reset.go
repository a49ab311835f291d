package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
	"github.com/driftline/backend/pkg/jwt"
	"github.com/driftline/backend/pkg/password"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Returned whether or not the address exists, to avoid account
// enumeration.
const forgotPasswordMessage = "If that email address is registered, a reset link has been sent"

/*
 * ForgotPasswordHandler issues a password reset token and emails a reset
 * link. The response is identical whether or not the address is
 * registered. A new request invalidates any previously issued reset
 * token for the account.
 *
 * Request body expects JSON:
 * {
 *   "email": "string"
 * }
 *
 * Responses:
 *   - 200: Generic message, whether or not the address is registered
 *   - 400: Invalid request format
 *   - 500: Server error
 */
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same response as the success path
			httputil.RespondWithData(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
			return
		}
		debug.Error("Failed to look up user for password reset: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.InvalidateUserTokens(user.ID, models.TokenPurposePasswordReset); err != nil {
		debug.Error("Failed to invalidate previous reset tokens: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token := jwt.GenerateSecureToken()
	expiresAt := time.Now().Add(h.cfg.ResetTokenTTL)
	if err := h.db.CreateVerificationToken(token, user.ID, models.TokenPurposePasswordReset, expiresAt); err != nil {
		debug.Error("Failed to store reset token: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.emailService.SendPasswordResetEmail(r.Context(), user.Email, user.Username, token, h.cfg.ResetTokenTTL); err != nil {
		debug.Error("Failed to send password reset email: %v", err)
	}

	debug.Info("Password reset requested for user %s", user.ID)
	httputil.RespondWithData(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
}

/*
 * CheckResetTokenHandler reports whether a reset token is still
 * redeemable without consuming it, so the reset landing page can
 * validate the link before the user types a new password.
 *
 * Responses:
 *   - 200: {valid: true}
 *   - 400: Token absent, consumed, or expired
 */
func (h *Handler) CheckResetTokenHandler(w http.ResponseWriter, r *http.Request) {
	token := httputil.GetQueryParam(r, "token")
	if token == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "Token is required")
		return
	}

	vt, err := h.db.GetVerificationToken(token, models.TokenPurposePasswordReset)
	if err != nil {
		if errors.Is(err, db.ErrTokenInvalid) {
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		debug.Error("Failed to look up reset token: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !vt.Valid(time.Now()) {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	httputil.RespondWithData(w, http.StatusOK, map[string]bool{"valid": true})
}

/*
 * ResetPasswordHandler consumes a reset token and sets a new password.
 * The token redeems exactly once; all of the account's sessions are
 * revoked so a stolen cookie dies with the old password.
 *
 * Request body expects JSON:
 * {
 *   "token": "string",
 *   "password": "string"
 * }
 *
 * Responses:
 *   - 200: Password updated
 *   - 400: Invalid token, or password fails the policy
 *   - 500: Server error
 */
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Token and password are required")
		return
	}

	if err := password.Validate(req.Password, h.cfg.PasswordPolicy); err != nil {
		var verr *password.ValidationError
		if errors.As(err, &verr) {
			httputil.RespondWithError(w, http.StatusBadRequest, verr.Message)
			return
		}
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid password")
		return
	}

	userID, err := h.db.ConsumeVerificationToken(req.Token, models.TokenPurposePasswordReset)
	if err != nil {
		if errors.Is(err, db.ErrTokenInvalid) {
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		debug.Error("Failed to consume reset token: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{}
	if err := user.SetPassword(req.Password); err != nil {
		debug.Error("Failed to hash password: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.UpdatePassword(userID, *user.PasswordHash); err != nil {
		debug.Error("Failed to update password: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Log out everywhere
	if err := h.db.RevokeAllSessions(userID); err != nil {
		debug.Error("Failed to revoke sessions after password reset: %v", err)
	}

	// The reset has already succeeded; the notification is best effort
	if account, err := h.db.GetUserByID(userID.String()); err != nil {
		debug.Error("Failed to load user for security alert: %v", err)
	} else if err := h.emailService.SendSecurityAlertEmail(r.Context(), account.Email, account.Username, "Your password was changed"); err != nil {
		debug.Error("Failed to send security alert email: %v", err)
	}

	debug.Info("Password reset completed for user %s", userID)
	httputil.RespondWithSuccess(w, http.StatusOK)
}
