package webhook

import (
	apphttp "map_widget_backend/internal/http"
	"map_widget_backend/internal/poisync"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/logger"
)

// Config combines the settings the webhook module needs.
type Config interface {
	config.WebhookConfig
	config.RedisConfig
}

// Module wires the host push routes.
type Module struct {
	handler *Handler
	cfg     Config
}

// NewModule creates the webhook module.
func NewModule(svc *poisync.Service, dedup Dedup, cfg Config, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(svc, dedup, log),
		cfg:     cfg,
	}
}

// Name identifies the module.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the host push endpoints behind the key middleware.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Hooks
	group.Use(KeyAuthMiddleware(m.cfg))
	group.POST("/records", m.handler.HandleRecords)
	group.POST("/selection", m.handler.HandleSelection)
	group.POST("/options", m.handler.HandleOptions)
}

var _ apphttp.Module = (*Module)(nil)
