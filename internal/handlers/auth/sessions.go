package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
	"github.com/driftline/backend/pkg/jwt"
)

/*
 * ListSessionsHandler returns the caller's active sessions, most
 * recently active first. The session backing the presented token is
 * flagged as current.
 *
 * Responses:
 *   - 200: Session list
 *   - 401: No active session
 *   - 500: Server error
 */
func (h *Handler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
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

	sessions, err := h.db.GetUserSessions(uid)
	if err != nil {
		debug.Error("Failed to list sessions for user %s: %v", userID, err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if tokenID, ok := jwt.GetTokenID(r.Context()); ok {
		for _, s := range sessions {
			if s.TokenID.String() == tokenID {
				s.Current = true
			}
		}
	}

	httputil.RespondWithData(w, http.StatusOK, sessions)
}

/*
 * RevokeSessionHandler revokes one session by ID, or every session the
 * caller holds. Revoking a session deletes its auth token, so the
 * device's cookie stops working immediately.
 *
 * Query parameters:
 *   - sessionId: revoke a single session
 *   - all=true:  revoke every session, including the current one
 *
 * Responses:
 *   - 200: Revoked
 *   - 400: Neither parameter supplied, or malformed session ID
 *   - 401: No active session
 *   - 404: Session does not exist or belongs to another user
 *   - 500: Server error
 */
func (h *Handler) RevokeSessionHandler(w http.ResponseWriter, r *http.Request) {
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

	if httputil.GetBoolQueryParam(r, "all") {
		if err := h.db.RevokeAllSessions(uid); err != nil {
			debug.Error("Failed to revoke all sessions for user %s: %v", userID, err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		h.clearAuthCookie(w)
		debug.Info("All sessions revoked for user %s", userID)
		httputil.RespondWithSuccess(w, http.StatusOK)
		return
	}

	sessionIDParam := httputil.GetQueryParam(r, "sessionId")
	if sessionIDParam == "" {
		httputil.RespondWithError(w, http.StatusBadRequest, "sessionId or all=true is required")
		return
	}

	sessionID, err := uuid.Parse(sessionIDParam)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	// The ownership predicate lives in the query; a session belonging to
	// another user is indistinguishable from a missing one.
	if err := h.db.RevokeSession(sessionID, uid); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Session not found")
			return
		}
		debug.Error("Failed to revoke session %s: %v", sessionID, err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	debug.Info("Session %s revoked by user %s", sessionID, userID)
	httputil.RespondWithSuccess(w, http.StatusOK)
}
