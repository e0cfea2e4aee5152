// Package session issues short-lived widget session tokens. The renderer
// obtains one before opening the event stream; the token does nothing but
// tie a connection to a session id for logging and fan-out.
package session

import (
	"net/http"
	"time"

	apphttp "map_widget_backend/internal/http"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service mints widget session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a session service from configuration.
func NewService(cfg config.SessionConfig) *Service {
	return &Service{
		secret: []byte(cfg.GetSessionSecret()),
		ttl:    cfg.GetSessionTTL(),
	}
}

// Issue creates a new session id and its signed token.
func (s *Service) Issue() (uuid.UUID, string, error) {
	sessionID := uuid.New()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  sessionID.String(),
		"type": "widget_session",
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return uuid.Nil, "", err
	}
	return sessionID, token, nil
}

// Module wires the session issuance route.
type Module struct {
	svc *Service
}

// NewModule creates the session module.
func NewModule(cfg config.SessionConfig) *Module {
	return &Module{svc: NewService(cfg)}
}

// Name identifies the module.
func (m *Module) Name() string {
	return "session"
}

// RegisterRoutes mounts POST /widget/session on the open v1 group: the
// renderer has no credentials before this call.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/widget/session", m.handleIssue)
}

func (m *Module) handleIssue(c *gin.Context) {
	sessionID, token, err := m.svc.Issue()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to issue session", nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sessionID,
		"token":     token,
	})
}

var _ apphttp.Module = (*Module)(nil)
