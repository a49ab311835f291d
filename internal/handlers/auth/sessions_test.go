package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/internal/testutil"
	"github.com/driftline/backend/pkg/httputil"
)

var sessionColumns = []string{
	"id", "user_id", "token_id", "ip_address", "user_agent",
	"created_at", "last_active_at",
}

func TestListSessionsHandler(t *testing.T) {
	userID := uuid.New()
	currentTokenID := uuid.New()
	otherTokenID := uuid.New()

	t.Run("marks the current session", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM sessions").
			WillReturnRows(sqlmock.NewRows(sessionColumns).
				AddRow(uuid.New(), userID, currentTokenID, "10.0.0.1", "Firefox", now.Add(-time.Hour), now).
				AddRow(uuid.New(), userID, otherTokenID, "10.0.0.2", "Safari", now.Add(-48*time.Hour), now.Add(-time.Hour)))

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodGet, "/api/user/sessions", nil),
			userID.String(), currentTokenID.String())
		rr := httptest.NewRecorder()
		handler.ListSessionsHandler(rr, req)

		var resp struct {
			Success bool              `json:"success"`
			Data    []*models.Session `json:"data"`
		}
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
		require.Len(t, resp.Data, 2)
		assert.True(t, resp.Data[0].Current)
		assert.False(t, resp.Data[1].Current)
		assert.Equal(t, "10.0.0.1", resp.Data[0].IPAddress)
	})

	t.Run("empty list", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM sessions").
			WillReturnRows(sqlmock.NewRows(sessionColumns))

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodGet, "/api/user/sessions", nil),
			userID.String(), currentTokenID.String())
		rr := httptest.NewRecorder()
		handler.ListSessionsHandler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodGet, "/api/user/sessions", nil)
		rr := httptest.NewRecorder()
		handler.ListSessionsHandler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRevokeSessionHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("revoke single session", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		sessionID := uuid.New()
		mock.ExpectExec("DELETE FROM auth_tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodDelete, "/api/user/sessions?sessionId="+sessionID.String(), nil),
			userID.String(), "")
		rr := httptest.NewRecorder()
		handler.RevokeSessionHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
		assert.True(t, resp.Success)
	})

	t.Run("session owned by someone else looks missing", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectExec("DELETE FROM auth_tokens").
			WillReturnResult(sqlmock.NewResult(0, 0))

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodDelete, "/api/user/sessions?sessionId="+uuid.NewString(), nil),
			userID.String(), "")
		rr := httptest.NewRecorder()
		handler.RevokeSessionHandler(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Session not found")
	})

	t.Run("revoke all sessions clears the cookie", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectExec("DELETE FROM auth_tokens").
			WillReturnResult(sqlmock.NewResult(0, 3))

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodDelete, "/api/user/sessions?all=true", nil),
			userID.String(), "")
		rr := httptest.NewRecorder()
		handler.RevokeSessionHandler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		testutil.AssertCookieDeleted(t, rr, "token")
	})

	t.Run("missing parameters", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodDelete, "/api/user/sessions", nil),
			userID.String(), "")
		rr := httptest.NewRecorder()
		handler.RevokeSessionHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "sessionId or all=true is required")
	})

	t.Run("malformed session ID", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.WithAuthContext(
			testutil.MakeRequest(t, http.MethodDelete, "/api/user/sessions?sessionId=not-a-uuid", nil),
			userID.String(), "")
		rr := httptest.NewRecorder()
		handler.RevokeSessionHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
