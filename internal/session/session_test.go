package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"map_widget_backend/platform/config"
	"map_widget_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}
}

func TestIssueProducesValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	sessionID, token, err := NewService(cfg).Issue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID == uuid.Nil {
		t.Fatal("expected a non-nil session id")
	}

	// The issued token must pass the guard protecting widget routes.
	router := gin.New()
	router.GET("/guarded", httpkit.SessionRequired(cfg), func(c *gin.Context) {
		id, ok := httpkit.SessionID(c)
		if !ok {
			t.Fatal("session id missing from context")
		}
		if id != sessionID {
			t.Fatalf("expected session id %s, got %s", sessionID, id)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTokenAcceptedViaQueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	_, token, err := NewService(cfg).Issue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := gin.New()
	router.GET("/stream", httpkit.SessionRequired(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGuardRejectsBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/guarded", httpkit.SessionRequired(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// No token at all.
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}

	// Token signed with a different secret.
	other := &config.Config{SessionSecret: "other-secret", SessionTTL: time.Hour}
	_, forged, err := NewService(other).Issue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: expected 401, got %d", w.Code)
	}
}

func TestHandleIssueEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewModule(testConfig())

	router := gin.New()
	router.POST("/widget/session", m.handleIssue)

	req := httptest.NewRequest(http.MethodPost, "/widget/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "sessionId") || !strings.Contains(body, "token") {
		t.Fatalf("unexpected body: %s", body)
	}
}
