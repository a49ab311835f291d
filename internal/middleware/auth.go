package middleware

import (
	"net/http"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
	"github.com/driftline/backend/pkg/jwt"
)

// RequireAuth middleware ensures that only authenticated users can access the route.
// The presented JWT must also still exist in the auth token store, so a
// revoked session stops working before the JWT itself expires.
func RequireAuth(database *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			debug.Debug("[AUTH] Checking authentication for %s %s", r.Method, r.URL.Path)

			// Skip middleware for OPTIONS requests
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie("token")
			if err != nil {
				debug.Warning("[AUTH] No auth token found in cookies for %s %s", r.Method, r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := jwt.ValidateJWT(cookie.Value)
			if err != nil {
				debug.Warning("[AUTH] Invalid token: %v", err)
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			tokenID, err := database.GetAuthTokenID(cookie.Value)
			if err != nil {
				if err == models.ErrNotFound {
					debug.Warning("[AUTH] Token not found in store (revoked or expired)")
					httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				debug.Error("[AUTH] Failed to look up token: %v", err)
				httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if err := database.UpdateSessionActivity(tokenID); err != nil {
				debug.Error("[AUTH] Failed to update session activity: %v", err)
			}

			ctx := jwt.WithUserID(r.Context(), userID)
			ctx = jwt.WithTokenID(ctx, tokenID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
