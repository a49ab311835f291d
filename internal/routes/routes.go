package routes

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/internal/handlers/auth"
	"github.com/driftline/backend/internal/middleware"
	"github.com/driftline/backend/internal/version"
	"github.com/driftline/backend/pkg/debug"
	"github.com/driftline/backend/pkg/httputil"
)

/*
 * Package routes handles the setup and configuration of all application routes.
 * It includes middleware for CORS and authentication, and organizes routes into
 * public and session-protected groups.
 */

// CORSMiddleware handles CORS headers for all requests. The allowed
// origin comes from CORS_ALLOWED_ORIGIN, falling back to the local
// frontend dev server.
func CORSMiddleware(next http.Handler) http.Handler {
	allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == allowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Cookie")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

/*
 * SetupRoutes configures the application's route hierarchy:
 *   - Public (/api/auth/...): registration, login, token redemption
 *   - Protected (/api/user/...): 2FA management, sessions, profile
 *
 * Middleware Applied:
 *   - CORS middleware (all routes)
 *   - Request logging (all API routes)
 *   - JWT authentication (protected routes)
 */
func SetupRoutes(r *mux.Router, database *db.DB, authHandler *auth.Handler) {
	debug.Info("Initializing route configuration")

	r.Use(CORSMiddleware)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(loggingMiddleware)

	apiRouter.HandleFunc("/version", versionHandler).Methods(http.MethodGet)

	// Public auth routes
	apiRouter.HandleFunc("/auth/register", authHandler.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/login", authHandler.LoginHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/2fa/verify", authHandler.VerifyTwoFactorHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/forgot-password", authHandler.ForgotPasswordHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/reset-password", authHandler.CheckResetTokenHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/auth/reset-password", authHandler.ResetPasswordHandler).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/verify-email", authHandler.VerifyEmailHandler).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/auth/resend-verification", authHandler.ResendVerificationHandler).Methods(http.MethodPost, http.MethodOptions)

	// Session-protected routes
	jwtRouter := apiRouter.PathPrefix("").Subrouter()
	jwtRouter.Use(middleware.RequireAuth(database))

	jwtRouter.HandleFunc("/auth/check", authHandler.CheckAuthHandler).Methods(http.MethodGet)
	jwtRouter.HandleFunc("/user/2fa/setup", authHandler.SetupTwoFactorHandler).Methods(http.MethodPost, http.MethodOptions)
	jwtRouter.HandleFunc("/user/2fa/enable", authHandler.EnableTwoFactorHandler).Methods(http.MethodPost, http.MethodOptions)
	jwtRouter.HandleFunc("/user/2fa/disable", authHandler.DisableTwoFactorHandler).Methods(http.MethodPost, http.MethodOptions)
	jwtRouter.HandleFunc("/user/2fa/backup-codes", authHandler.BackupCodeStatusHandler).Methods(http.MethodGet)
	jwtRouter.HandleFunc("/user/sessions", authHandler.ListSessionsHandler).Methods(http.MethodGet)
	jwtRouter.HandleFunc("/user/sessions", authHandler.RevokeSessionHandler).Methods(http.MethodDelete, http.MethodOptions)

	debug.Info("Route configuration completed successfully")
}

// versionHandler reports the running server build
func versionHandler(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithData(w, http.StatusOK, version.Get())
}

// loggingMiddleware logs details about each request
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			debug.Debug("OPTIONS request received: %s from %s", r.URL.Path, r.RemoteAddr)
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		debug.Info("Request received: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		debug.Info("Request completed: %s %s - Status: %d - Duration: %v",
			r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
