package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/driftline/backend/pkg/jwt"
)

// SetTestJWTSecret sets the JWT_SECRET environment variable for testing
func SetTestJWTSecret(t *testing.T) {
	t.Helper()

	oldSecret := os.Getenv("JWT_SECRET")
	os.Setenv("JWT_SECRET", TestJWTSecret)

	t.Cleanup(func() {
		if oldSecret != "" {
			os.Setenv("JWT_SECRET", oldSecret)
		} else {
			os.Unsetenv("JWT_SECRET")
		}
	})
}

// MakeRequest creates a basic HTTP request with a JSON body
func MakeRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req
}

// MakeAuthenticatedRequest creates an HTTP request carrying a valid auth
// cookie, for tests that exercise the auth middleware.
func MakeAuthenticatedRequest(t *testing.T, method, url string, body interface{}, userID, role string) *http.Request {
	t.Helper()

	req := MakeRequest(t, method, url, body)

	token, err := jwt.GenerateToken(userID, role, 60)
	if err != nil {
		t.Fatalf("Failed to generate auth token: %v", err)
	}

	req.AddCookie(&http.Cookie{
		Name:  "token",
		Value: token,
	})

	return req
}

// WithAuthContext attaches the user and token IDs the auth middleware
// would have resolved, for testing handlers in isolation.
func WithAuthContext(req *http.Request, userID, tokenID string) *http.Request {
	ctx := jwt.WithUserID(req.Context(), userID)
	if tokenID != "" {
		ctx = jwt.WithTokenID(ctx, tokenID)
	}
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that the response has the expected status and decodes JSON
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, v interface{}) {
	t.Helper()

	if rr.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d. Body: %s", expectedStatus, rr.Code, rr.Body.String())
	}

	if v != nil && rr.Body.Len() > 0 {
		if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
			t.Errorf("Failed to decode JSON response: %v. Body: %s", err, rr.Body.String())
		}
	}
}

// AssertCookieSet checks that a cookie with the given name was set
func AssertCookieSet(t *testing.T, rr *httptest.ResponseRecorder, cookieName string) *http.Cookie {
	t.Helper()

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == cookieName {
			return cookie
		}
	}

	t.Errorf("Expected cookie %s to be set, but it was not", cookieName)
	return nil
}

// AssertCookieDeleted checks that a cookie was deleted (MaxAge < 0)
func AssertCookieDeleted(t *testing.T, rr *httptest.ResponseRecorder, cookieName string) {
	t.Helper()

	cookie := AssertCookieSet(t, rr, cookieName)
	if cookie != nil && cookie.MaxAge >= 0 {
		t.Errorf("Expected cookie %s to be deleted (MaxAge < 0), but MaxAge was %d", cookieName, cookie.MaxAge)
	}
}
