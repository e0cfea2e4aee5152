package poisync

import (
	apphttp "map_widget_backend/internal/http"
	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/routectx"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"
	"map_widget_backend/platform/validator"
)

// Module wires the synchronizer and its interaction routes.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule creates the synchronizer module.
func NewModule(hostClient HostClient, view *mapview.View, routes *routectx.Tracker, cfg config.HostConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(hostClient, view, routes, cfg, bus, log)
	return &Module{
		service: svc,
		handler: NewHandler(svc, val),
	}
}

// Name identifies the module.
func (m *Module) Name() string {
	return "poisync"
}

// Service exposes the synchronizer for the webhook module and main.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the interaction endpoints on the widget group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Widget.Group("/interactions")
	group.Use(ctx.InteractionLimiter.RateLimit())
	group.POST("/map-click", m.handler.MapClick)
	group.POST("/marker-click", m.handler.MarkerClick)
	group.POST("/marker-drag", m.handler.MarkerDrag)
}

var _ apphttp.Module = (*Module)(nil)
