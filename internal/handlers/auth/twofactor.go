package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
	"github.com/driftline/backend/pkg/jwt"
)

const (
	totpDigits = 6
	totpPeriod = 30
	totpSkew   = 1 // Accept one period before/after

	backupCodeLength = 10
	// No 0/O/1/I so codes survive being read aloud or written down
	backupCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type TwoFactorEnableRequest struct {
	// Token and Code are interchangeable; clients use both spellings.
	Token string `json:"token,omitempty"`
	Code  string `json:"code,omitempty"`
}

type TwoFactorDisableRequest struct {
	Token string `json:"token,omitempty"`
	Code  string `json:"code,omitempty"`
}

type TwoFactorVerifyRequest struct {
	// SessionToken is set when completing a login; UserID when a caller
	// verifies a code directly.
	SessionToken string `json:"sessionToken,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Code         string `json:"code,omitempty"`
	Token        string `json:"token,omitempty"`
}

type TwoFactorSetupResponse struct {
	Secret         string `json:"secret"`
	QRCode         string `json:"qrCode"`
	ManualEntryKey string `json:"manualEntryKey"`
}

// generateBackupCodes creates n single-use recovery codes in the form
// XXXXX-XXXXX.
func generateBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		buf := make([]byte, backupCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		code := make([]byte, backupCodeLength)
		for j, b := range buf {
			code[j] = backupCodeCharset[int(b)%len(backupCodeCharset)]
		}
		codes[i] = fmt.Sprintf("%s-%s", code[:backupCodeLength/2], code[backupCodeLength/2:])
	}
	return codes, nil
}

// validateTOTP checks a 6-digit code against a base32 secret.
func validateTOTP(code, secret string) (bool, error) {
	return totp.ValidateCustom(
		code,
		secret,
		time.Now().UTC(),
		totp.ValidateOpts{
			Algorithm: otp.AlgorithmSHA1,
			Digits:    totpDigits,
			Period:    totpPeriod,
			Skew:      totpSkew,
		},
	)
}

/*
 * SetupTwoFactorHandler starts two-factor enrollment. It generates a new
 * TOTP secret, stores it pending confirmation, and returns the secret
 * with a QR code of the provisioning URI. Repeating the call replaces
 * the pending secret.
 *
 * Responses:
 *   - 200: Secret generated, QR code returned
 *   - 401: No active session
 *   - 409: Two-factor already enabled
 *   - 500: Server error
 */
func (h *Handler) SetupTwoFactorHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.db.GetUserByID(userID)
	if err != nil {
		debug.Error("Failed to get user %s: %v", userID, err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if user.TwoFactorEnabled {
		httputil.RespondWithError(w, http.StatusConflict, "Two-factor authentication is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      h.cfg.AppName,
		AccountName: user.Email,
		Digits:      totpDigits,
		Period:      totpPeriod,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		debug.Error("Failed to generate TOTP key: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.StorePendingTOTPSecret(user.ID, key.Secret()); err != nil {
		debug.Error("Failed to store pending TOTP secret: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// PNG of the provisioning URI for authenticator apps
	qr, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		debug.Error("Failed to generate QR code: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	debug.Info("Two-factor setup started for user %s", userID)
	httputil.RespondWithData(w, http.StatusOK, TwoFactorSetupResponse{
		Secret:         key.Secret(),
		QRCode:         base64.StdEncoding.EncodeToString(qr),
		ManualEntryKey: key.Secret(),
	})
}

/*
 * EnableTwoFactorHandler confirms enrollment. The submitted code must
 * match the pending secret; on success the secret is promoted, the flag
 * is set, and a fresh batch of backup codes is returned in plaintext.
 * This is the only time the backup codes are visible.
 *
 * Responses:
 *   - 200: Enabled, backup codes returned
 *   - 400: No pending setup or invalid code
 *   - 401: No active session
 *   - 500: Server error
 */
func (h *Handler) EnableTwoFactorHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req TwoFactorEnableRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	code := req.Code
	if code == "" {
		code = req.Token
	}
	if err := h.validate.Var(code, "required,len=6,numeric"); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Verification code must be 6 digits")
		return
	}

	secret, err := h.db.GetPendingTOTPSecret(uid)
	if err != nil {
		if errors.Is(err, db.ErrNotSetUp) {
			httputil.RespondWithError(w, http.StatusBadRequest, "No pending two-factor setup")
			return
		}
		debug.Error("Failed to get pending TOTP secret: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	valid, err := validateTOTP(code, secret)
	if err != nil {
		debug.Error("Failed to validate TOTP code: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !valid {
		debug.Info("Invalid TOTP code during setup for user %s", userID)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid verification code")
		return
	}

	codes, err := generateBackupCodes(h.cfg.BackupCodeCount)
	if err != nil {
		debug.Error("Failed to generate backup codes: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			debug.Error("Failed to hash backup code: %v", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		hashes[i] = string(hash)
	}

	if err := h.db.EnableTwoFactor(uid, hashes); err != nil {
		if errors.Is(err, db.ErrNotSetUp) {
			httputil.RespondWithError(w, http.StatusBadRequest, "No pending two-factor setup")
			return
		}
		debug.Error("Failed to enable two-factor: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	debug.Info("Two-factor authentication enabled for user %s", userID)
	httputil.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"backupCodes": codes,
	})
}

/*
 * DisableTwoFactorHandler turns two-factor off after re-verifying a
 * current TOTP code or backup code. All stored secrets and backup codes
 * are retired.
 *
 * Responses:
 *   - 200: Disabled
 *   - 400: Two-factor not enabled or invalid code
 *   - 401: No active session
 *   - 500: Server error
 */
func (h *Handler) DisableTwoFactorHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req TwoFactorDisableRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	code := req.Code
	if code == "" {
		code = req.Token
	}
	if err := h.validate.Var(code, "required"); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	if _, err := h.verifyCode(uid, code); err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidCode):
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid verification code")
		case errors.Is(err, db.ErrNotSetUp):
			httputil.RespondWithError(w, http.StatusBadRequest, "Two-factor authentication is not enabled")
		default:
			debug.Error("Failed to verify two-factor code: %v", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	if err := h.db.DisableTwoFactor(uid); err != nil {
		debug.Error("Failed to disable two-factor: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	debug.Info("Two-factor authentication disabled for user %s", userID)
	httputil.RespondWithSuccess(w, http.StatusOK)
}

// verifyCode checks a submitted code against the user's confirmed TOTP
// secret, falling back to the backup code vault. A matched backup code is
// consumed atomically; the second of two racing requests sees it as
// already used. A code matching neither check fails with
// db.ErrInvalidCode.
func (h *Handler) verifyCode(userID uuid.UUID, code string) (usedBackupCode bool, err error) {
	enabled, secret, err := h.db.GetTwoFactorState(userID)
	if err != nil {
		return false, err
	}
	if !enabled || secret == "" {
		return false, db.ErrNotSetUp
	}

	// A backup-code-shaped input fails TOTP validation with a length
	// error; fall through to the vault rather than treating it as fatal.
	valid, err := validateTOTP(code, secret)
	if err != nil {
		debug.Debug("TOTP validation rejected input: %v", err)
	}
	if valid {
		return false, nil
	}

	backupCodes, err := h.db.GetUnusedBackupCodes(userID)
	if err != nil {
		return false, err
	}
	for _, bc := range backupCodes {
		if bcrypt.CompareHashAndPassword([]byte(bc.CodeHash), []byte(code)) != nil {
			continue
		}
		consumed, err := h.db.ConsumeBackupCode(bc.ID)
		if err != nil {
			return false, err
		}
		// Lost a race with a concurrent use of the same code
		if !consumed {
			return false, db.ErrInvalidCode
		}
		debug.Info("Backup code consumed for user %s", userID)
		return true, nil
	}

	return false, db.ErrInvalidCode
}

/*
 * VerifyTwoFactorHandler verifies a TOTP or backup code. Two callers use
 * it: the login flow presents the sessionToken returned by login and
 * receives an auth token, and direct verification presents a userId and
 * receives the verification outcome.
 *
 * Request body expects JSON:
 * {
 *   "sessionToken": "string",  // login flow
 *   "userId": "string",        // direct verification
 *   "code": "string"           // "token" is accepted as an alias
 * }
 *
 * Responses:
 *   - 200: Verified (login flow additionally sets the auth cookie)
 *   - 400: Invalid request, or invalid code outside a login flow
 *   - 401: Invalid code within a login flow, or session expired/locked
 *   - 500: Server error
 */
func (h *Handler) VerifyTwoFactorHandler(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorVerifyRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	code := req.Code
	if code == "" {
		code = req.Token
	}
	if code == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	if req.SessionToken != "" {
		h.verifyLoginFlow(w, r, req.SessionToken, code)
		return
	}

	if req.UserID == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "Either sessionToken or userId is required")
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	usedBackupCode, err := h.verifyCode(uid, code)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidCode):
			httputil.RespondWithError(w, http.StatusBadRequest, "Invalid verification code")
		case errors.Is(err, db.ErrNotSetUp):
			httputil.RespondWithError(w, http.StatusBadRequest, "Two-factor authentication is not enabled")
		default:
			debug.Error("Failed to verify two-factor code: %v", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httputil.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"verified":       true,
		"usedBackupCode": usedBackupCode,
	})
}

// verifyLoginFlow completes a password-then-code login. The two-factor
// session carries an attempt budget; exhausting it deletes the session
// and forces a fresh login.
func (h *Handler) verifyLoginFlow(w http.ResponseWriter, r *http.Request, sessionToken, code string) {
	session, err := h.db.GetTwoFactorSession(sessionToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired two-factor session")
			return
		}
		debug.Error("Failed to get two-factor session: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if time.Now().After(session.ExpiresAt) {
		if err := h.db.DeleteTwoFactorSession(sessionToken); err != nil {
			debug.Error("Failed to delete expired two-factor session: %v", err)
		}
		httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired two-factor session")
		return
	}

	if session.Attempts >= h.cfg.TwoFactorMaxAttempts {
		if err := h.db.DeleteTwoFactorSession(sessionToken); err != nil {
			debug.Error("Failed to delete locked two-factor session: %v", err)
		}
		httputil.RespondWithError(w, http.StatusUnauthorized, "Too many invalid codes, please log in again")
		return
	}

	_, err = h.verifyCode(session.UserID, code)
	if err != nil && !errors.Is(err, db.ErrInvalidCode) {
		debug.Error("Failed to verify two-factor code: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err != nil {
		attempts, err := h.db.IncrementTwoFactorAttempts(sessionToken)
		if err != nil {
			debug.Error("Failed to increment two-factor attempts: %v", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if attempts >= h.cfg.TwoFactorMaxAttempts {
			if err := h.db.DeleteTwoFactorSession(sessionToken); err != nil {
				debug.Error("Failed to delete locked two-factor session: %v", err)
			}
			httputil.RespondWithError(w, http.StatusUnauthorized, "Too many invalid codes, please log in again")
			return
		}
		debug.Info("Invalid two-factor code for user %s (%d attempts)", session.UserID, attempts)
		httputil.RespondWithErrorPayload(w, http.StatusUnauthorized, "Invalid verification code", map[string]interface{}{
			"remainingAttempts": h.cfg.TwoFactorMaxAttempts - attempts,
		})
		return
	}

	user, err := h.db.GetUserByID(session.UserID.String())
	if err != nil {
		debug.Error("Failed to get user %s: %v", session.UserID, err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.issueSession(r, user)
	if err != nil {
		debug.Error("Failed to issue session: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.DeleteTwoFactorSession(sessionToken); err != nil {
		debug.Error("Failed to delete two-factor session: %v", err)
	}

	h.setAuthCookie(w, token, h.cfg.JWTExpiryMinutes*60)
	debug.Info("User '%s' completed two-factor login", user.Username)

	httputil.RespondWithData(w, http.StatusOK, models.LoginResponse{Token: token})
}

/*
 * BackupCodeStatusHandler reports how many unused backup codes remain,
 * so clients can prompt for regeneration when the vault runs low.
 *
 * Responses:
 *   - 200: {remaining}
 *   - 401: No active session
 *   - 500: Server error
 */
func (h *Handler) BackupCodeStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	remaining, err := h.db.CountUnusedBackupCodes(uid)
	if err != nil {
		debug.Error("Failed to count backup codes: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"remaining": remaining,
	})
}
