package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftline/backend/internal/models"
	"github.com/driftline/backend/internal/testutil"
	"github.com/driftline/backend/pkg/httputil"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "role", "email_verified_at",
	"two_factor_enabled", "totp_secret", "totp_pending_secret",
	"created_at", "updated_at",
}

// userRow builds a sqlmock row for the given user
func userRow(user *models.User) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
		user.EmailVerifiedAt, user.TwoFactorEnabled, user.TOTPSecret,
		user.TOTPPendingSecret, user.CreatedAt, user.UpdatedAt,
	)
}

func hashPassword(t *testing.T, plaintext string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func TestRegisterHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	t.Run("successful registration", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		emailService := testutil.NewMockEmailService()
		handler := NewHandler(db, emailService, testutil.TestConfig())

		now := time.Now()
		mock.ExpectQuery("INSERT INTO users").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec("INSERT INTO verification_tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "newuser",
			"email":    "New@Example.com",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.RegisterHandler(rr, req)

		var resp httputil.Envelope
		testutil.AssertJSONResponse(t, rr, http.StatusCreated, &resp)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "newuser", data["username"])
		assert.Equal(t, "new@example.com", data["email"])

		token, ok := emailService.LastVerificationToken()
		require.True(t, ok)
		assert.NotEmpty(t, token)
	})

	t.Run("duplicate username", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505"})

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "taken",
			"email":    "taken@example.com",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.RegisterHandler(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "already taken")
	})

	t.Run("weak password rejected", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "newuser",
			"email":    "new@example.com",
			"password": testutil.WeakTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.RegisterHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		db, _ := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "newuser",
			"email":    "not-an-email",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.RegisterHandler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	t.Run("successful login without two-factor", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		user := testutil.ValidUser()
		user.PasswordHash = hashPassword(t, testutil.DefaultTestPassword)

		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))
		mock.ExpectQuery("INSERT INTO auth_tokens").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
		now := time.Now()
		mock.ExpectQuery("INSERT INTO sessions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_active_at"}).AddRow(uuid.New(), now, now))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    user.Email,
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.LoginHandler(rr, req)

		var resp struct {
			Success bool                 `json:"success"`
			Data    models.LoginResponse `json:"data"`
		}
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data.Token)
		assert.False(t, resp.Data.RequiresTwoFactor)

		cookie := testutil.AssertCookieSet(t, rr, "token")
		require.NotNil(t, cookie)
		assert.Equal(t, resp.Data.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		user := testutil.ValidUser()
		user.PasswordHash = hashPassword(t, testutil.DefaultTestPassword)
		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    user.Email,
			"password": "wrong-password",
		})
		rr := httptest.NewRecorder()
		handler.LoginHandler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(sqlmock.NewRows(userColumns))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.LoginHandler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("two-factor enabled defers token issuance", func(t *testing.T) {
		db, mock := testutil.SetupMockDB(t)
		handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

		secret := testutil.ValidTOTPSecret
		user := testutil.ValidUser()
		user.PasswordHash = hashPassword(t, testutil.DefaultTestPassword)
		user.TwoFactorEnabled = true
		user.TOTPSecret = &secret

		mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))
		mock.ExpectQuery("INSERT INTO two_factor_sessions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "expires_at"}).AddRow(uuid.New(), time.Now().Add(5*time.Minute)))

		req := testutil.MakeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    user.Email,
			"password": testutil.DefaultTestPassword,
		})
		rr := httptest.NewRecorder()
		handler.LoginHandler(rr, req)

		var resp struct {
			Success bool                 `json:"success"`
			Data    models.LoginResponse `json:"data"`
		}
		testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
		assert.True(t, resp.Data.RequiresTwoFactor)
		assert.NotEmpty(t, resp.Data.SessionToken)
		assert.Empty(t, resp.Data.Token)

		for _, c := range rr.Result().Cookies() {
			assert.NotEqual(t, "token", c.Name, "no auth cookie before two-factor verification")
		}
	})
}

func TestLogoutHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	db, mock := testutil.SetupMockDB(t)
	handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

	mock.ExpectExec("DELETE FROM auth_tokens").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := testutil.MakeAuthenticatedRequest(t, http.MethodPost, "/api/auth/logout", nil, uuid.New().String(), "user")
	rr := httptest.NewRecorder()
	handler.LogoutHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	testutil.AssertCookieDeleted(t, rr, "token")
}

func TestGetClientInfo(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		realIP     string
		wantIP     string
	}{
		{"ipv4 with port", "203.0.113.7:51234", "", "203.0.113.7"},
		{"ipv6 with port", "[2001:db8::1]:51234", "", "2001:db8::1"},
		{"bare ipv6", "2001:db8::1", "", "2001:db8::1"},
		{"proxy header wins", "203.0.113.7:51234", "198.51.100.2", "198.51.100.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			ip, userAgent := getClientInfo(req)
			assert.Equal(t, tc.wantIP, ip)
			assert.Equal(t, "Unknown", userAgent)
		})
	}
}

func TestCheckAuthHandler(t *testing.T) {
	testutil.SetTestJWTSecret(t)

	db, mock := testutil.SetupMockDB(t)
	handler := NewHandler(db, testutil.NewMockEmailService(), testutil.TestConfig())

	user := testutil.ValidUser()
	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(userRow(user))

	req := testutil.WithAuthContext(
		testutil.MakeRequest(t, http.MethodGet, "/api/auth/check", nil),
		user.ID.String(), "")
	rr := httptest.NewRecorder()
	handler.CheckAuthHandler(rr, req)

	var resp httputil.Envelope
	testutil.AssertJSONResponse(t, rr, http.StatusOK, &resp)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["authenticated"])
}
