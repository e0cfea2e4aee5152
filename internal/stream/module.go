package stream

import (
	apphttp "map_widget_backend/internal/http"
	"map_widget_backend/internal/mapview"
	"map_widget_backend/platform/httpkit"
)

// Module wires the SSE stream route.
type Module struct {
	service  *Service
	snapshot func() []mapview.Command
}

// NewModule creates the stream module around an existing service.
func NewModule(service *Service, snapshot func() []mapview.Command) *Module {
	return &Module{service: service, snapshot: snapshot}
}

// Name identifies the module.
func (m *Module) Name() string {
	return "stream"
}

// Service exposes the underlying stream service.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts GET /widget/stream on the session-authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Widget.GET("/stream", m.service.Handler(httpkit.SessionID, m.snapshot))
}

var _ apphttp.Module = (*Module)(nil)
