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

func TestForgotPasswordHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	t.Run("known email sends reset link", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		emailService := testutil.NewMockEmailService()
		handler := NewHandler(db, emailService, testutil.TestConfig())

		user := testutil.ValidUser()
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))
		mock.ExpectExec("UPDATE verification_tokens").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO verification_tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": user.Email,
		})
		rr := httptest.NewRecorder()
		handler.ForgotPasswordHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)

		token, ok := emailService.LastResetToken()
		require.True(t, ok)
		assert.NotEmpty(t, token)
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		emailService := testutil.NewMockEmailService()
		handler := NewHandler(db, emailService, testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(sqlmock.NewRows(userColumns))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": "nobody@example.com",
		})
		rr := httptest.NewRecorder()
		handler.ForgotPasswordHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, forgotPasswordMessage, data["message"])

		_, sent := emailService.LastResetToken()
		assert.False(t, sent, "no email should be sent for unknown addresses")
	})

	t.Run("lookup failure is not masked", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		emailService := testutil.NewMockEmailService()
		handler := NewHandler(db, emailService, testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnError(assert.AnError)

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": "someone@example.com",
		})
		rr := httptest.NewRecorder()
		handler.ForgotPasswordHandler(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		_, sent := emailService.LastResetToken()
		assert.False(t, sent)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": "not-an-email",
		})
		rr := httptest.NewRecorder()
		handler.ForgotPasswordHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCheckResetTokenHandler(t *testing.T) {
	tokenColumns := []string{"token", "user_id", "purpose", "expires_at", "consumed_at", "created_at"}

	t.Run("valid token", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM verification_tokens").
			WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
				"reset-token", uuid.New(), string(models.TokenPurposePasswordReset),
				time.Now().Add(time.Hour), nil, time.Now()))

		req := testutil.MakeRequest(t, http.MethodGet, "/api/auth/reset-password?token=reset-token", nil)
		rr := httptest.NewRecorder()
		handler.CheckResetTokenHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["valid"])
	})

	t.Run("consumed token", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		consumed := time.Now().Add(-time.Minute)
		mock.ExpectQuery("SELECT (.+) FROM verification_tokens").
			WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
				"reset-token", uuid.New(), string(models.TokenPurposePasswordReset),
				time.Now().Add(time.Hour), consumed, time.Now().Add(-time.Hour)))

		req := testutil.MakeRequest(t, http.MethodGet, "/api/auth/reset-password?token=reset-token", nil)
		rr := httptest.NewRecorder()
		handler.CheckResetTokenHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM verification_tokens").
			WillReturnRows(sqlmock.NewRows(tokenColumns))

		req := testutil.MakeRequest(t, http.MethodGet, "/api/auth/reset-password?token=bogus", nil)
		rr := httptest.NewRecorder()
		handler.CheckResetTokenHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodGet, "/api/auth/reset-password", nil)
		rr := httptest.NewRecorder()
		handler.CheckResetTokenHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestResetPasswordHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	t.Run("valid token sets password and revokes sessions", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		emailService := testutil.NewMockEmailService()
		handler := NewHandler(db, emailService, testutil.TestConfig())

		user := testutil.ValidUser()
		mock.ExpectQuery("UPDATE verification_tokens").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(user.ID))
		mock.ExpectExec("UPDATE users").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM auth_tokens").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token":    "reset-token",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.ResetPasswordHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
		assert.True(t, resp.Success)

		require.Len(t, emailService.SecurityEmails, 1)
		assert.Equal(t, user.Email, emailService.SecurityEmails[0].To)
	})

	t.Run("spent token rejected", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		// Conditional consume matches no rows once redeemed
		mock.ExpectQuery("UPDATE verification_tokens").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token":    "spent-token",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.ResetPasswordHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid or expired token")
	})

	t.Run("weak password rejected before token consumption", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
			"token":    "reset-token",
			"password": testutil.WeakTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.ResetPasswordHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
