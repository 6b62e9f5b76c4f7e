package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/service"
)

const testSecret = "test-secret-key-for-session-signing"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTokenRouter() *gin.Engine {
	cfg := &config.Config{
		EnvVars: config.EnvVars{
			SessionSigningKey: testSecret,
		},
	}

	r := gin.New()
	r.Use(SessionTokenMiddleware(cfg))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": SessionIDFromContext(c)})
	})
	return r
}

func makeSessionToken(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := service.IssueSessionToken(sessionID, testSecret)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}
	return token
}

func TestSessionToken_NoTokenPassesThrough(t *testing.T) {
	r := setupTokenRouter()

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); body != `{"session_id":""}` {
		t.Errorf("body = %s", body)
	}
}

func TestSessionToken_QueryParameter(t *testing.T) {
	r := setupTokenRouter()

	req := httptest.NewRequest("GET", "/test?session="+makeSessionToken(t, "abc-123"), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d. body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if body := w.Body.String(); body != `{"session_id":"abc-123"}` {
		t.Errorf("body = %s", body)
	}
}

func TestSessionToken_Header(t *testing.T) {
	r := setupTokenRouter()

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(SessionTokenHeader, makeSessionToken(t, "def-456"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if body := w.Body.String(); body != `{"session_id":"def-456"}` {
		t.Errorf("body = %s", body)
	}
}

func TestSessionToken_Rejected(t *testing.T) {
	wrongKey, _ := service.IssueSessionToken("abc", "some-other-key")

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": "abc",
		"exp":        time.Now().Add(-time.Hour).Unix(),
		"type":       "voice_session",
	}).SignedString([]byte(testSecret))

	wrongType, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": "abc",
		"exp":        time.Now().Add(time.Hour).Unix(),
		"type":       "access",
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"garbage":    "not-a-jwt",
		"wrong key":  wrongKey,
		"expired":    expired,
		"wrong type": wrongType,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			r := setupTokenRouter()
			req := httptest.NewRequest("GET", "/test?session="+token, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestCheckIDHeader(t *testing.T) {
	r := gin.New()
	r.Use(CheckIDHeader("client-123"))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"client-123", http.StatusOK},
		{"client-124", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest("GET", "/test", nil)
		if tc.header != "" {
			req.Header.Set(ClientIDHeader, tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("header %q: status = %d, want %d", tc.header, w.Code, tc.want)
		}
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(2, time.Minute, time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	if !limiter.Allow("10.0.0.2") {
		t.Error("a different IP should have its own bucket")
	}
}
