package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
	"github.com/driftline/backend/pkg/jwt"
	"github.com/driftline/backend/pkg/password"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// getClientInfo extracts the caller's IP address and user agent for
// session records.
func getClientInfo(r *http.Request) (ipAddress, userAgent string) {
	ipAddress = r.Header.Get("X-Real-IP")
	if ipAddress == "" {
		ipAddress = r.Header.Get("X-Forwarded-For")
	}
	if ipAddress == "" {
		// RemoteAddr is usually host:port, but a bare IPv6 address has
		// colons of its own
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ipAddress = host
		} else {
			ipAddress = r.RemoteAddr
		}
	}

	userAgent = r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "Unknown"
	}

	return ipAddress, userAgent
}

// setAuthCookie sets the HTTP-only auth cookie
func (h *Handler) setAuthCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

// clearAuthCookie expires the auth cookie
func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// issueSession generates a JWT for the user, stores it, and records the
// session row. Returns the signed token.
func (h *Handler) issueSession(r *http.Request, user *models.User) (string, error) {
	token, err := jwt.GenerateToken(user.ID.String(), user.Role, h.cfg.JWTExpiryMinutes)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(h.cfg.JWTExpiryMinutes) * time.Minute)
	tokenID, err := h.db.StoreAuthToken(user.ID, token, expiresAt)
	if err != nil {
		return "", err
	}

	ipAddress, userAgent := getClientInfo(r)
	session := &models.Session{
		UserID:    user.ID,
		TokenID:   tokenID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := h.db.CreateSession(session); err != nil {
		debug.Error("Failed to create session record: %v", err)
		// The token is already valid; don't fail the login for this
	}

	return token, nil
}

/*
 * RegisterHandler creates a new account and sends a verification email.
 *
 * Request body expects JSON:
 * {
 *   "username": "string",
 *   "email": "string",
 *   "password": "string"
 * }
 *
 * Responses:
 *   - 201: Account created
 *   - 400: Invalid request format or weak password
 *   - 409: Username or email already taken
 *   - 500: Server error
 */
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	debug.Debug("Processing registration request")

	var req RegisterRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		debug.Warning("Failed to decode registration request: %v", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		debug.Warning("Registration request failed validation: %v", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
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

	user := models.NewUser(req.Username, strings.ToLower(req.Email))
	if err := user.SetPassword(req.Password); err != nil {
		debug.Error("Failed to hash password: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.CreateUser(user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			debug.Info("Registration rejected, username or email already taken: %s", req.Username)
			httputil.RespondWithError(w, http.StatusConflict, "Username or email already taken")
			return
		}
		debug.Error("Failed to create user: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.sendVerificationToken(r, user)
	debug.Info("User '%s' registered", user.Username)

	httputil.RespondWithData(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// sendVerificationToken issues an email verification token and mails it.
// Failures are logged but never fail the caller's request.
func (h *Handler) sendVerificationToken(r *http.Request, user *models.User) {
	token := jwt.GenerateSecureToken()
	expiresAt := time.Now().Add(h.cfg.VerifyTokenTTL)
	if err := h.db.CreateVerificationToken(token, user.ID, models.TokenPurposeEmailVerify, expiresAt); err != nil {
		debug.Error("Failed to store verification token: %v", err)
		return
	}
	if err := h.emailService.SendVerificationEmail(r.Context(), user.Email, user.Username, token, h.cfg.VerifyTokenTTL); err != nil {
		debug.Error("Failed to send verification email: %v", err)
	}
}

/*
 * LoginHandler processes user login requests.
 * It validates credentials and either issues an auth token or, for
 * accounts with two-factor enabled, opens a short-lived two-factor
 * session that must be completed before a token is issued.
 *
 * Request body expects JSON:
 * {
 *   "email": "string",
 *   "password": "string"
 * }
 *
 * Responses:
 *   - 200: Logged in (token) or two-factor required (sessionToken)
 *   - 400: Invalid request format
 *   - 401: Invalid credentials
 *   - 500: Server error (token generation/storage)
 */
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	debug.Debug("Processing login request")

	var req LoginRequest
	if err := httputil.ParseJSONBody(r, &req); err != nil {
		debug.Warning("Failed to decode login request: %v", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		debug.Warning("Login request failed validation: %v", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		debug.Info("Failed login attempt for '%s': %v", req.Email, err)
		httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.CheckPassword(req.Password) {
		debug.Info("Invalid password for user '%s'", user.Username)
		httputil.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.TwoFactorEnabled {
		sessionToken := jwt.GenerateSecureToken()
		if _, err := h.db.CreateTwoFactorSession(user.ID, sessionToken); err != nil {
			debug.Error("Failed to create two-factor session: %v", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		debug.Info("User '%s' passed password check, awaiting two-factor code", user.Username)
		httputil.RespondWithData(w, http.StatusOK, models.LoginResponse{
			RequiresTwoFactor: true,
			SessionToken:      sessionToken,
		})
		return
	}

	token, err := h.issueSession(r, user)
	if err != nil {
		debug.Error("Failed to issue session: %v", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setAuthCookie(w, token, h.cfg.JWTExpiryMinutes*60)
	debug.Info("User '%s' successfully logged in", user.Username)

	httputil.RespondWithData(w, http.StatusOK, models.LoginResponse{Token: token})
}

/*
 * LogoutHandler revokes the caller's auth token and clears the cookie.
 *
 * Responses:
 *   - 200: Logged out
 */
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		if err := h.db.RemoveAuthToken(cookie.Value); err != nil {
			debug.Error("Failed to remove auth token: %v", err)
		}
	}

	h.clearAuthCookie(w)
	debug.Info("User successfully logged out")
	httputil.RespondWithSuccess(w, http.StatusOK)
}

/*
 * CheckAuthHandler reports whether the caller holds a valid session and
 * returns the account profile.
 *
 * Responses:
 *   - 200: Authenticated, includes user profile
 *   - 401: Not authenticated (handled by middleware)
 *   - 500: Server error
 */
func (h *Handler) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
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

	httputil.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          user,
	})
}
