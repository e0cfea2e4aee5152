// Package stream pushes view commands and notifications to connected widget
// renderers over Server-Sent Events.
package stream

import (
	"context"
	"sync"

	"map_widget_backend/internal/mapview"
	"map_widget_backend/internal/poisync"
	"map_widget_backend/platform/events"
	"map_widget_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents the SSE event kinds sent to renderers.
type EventType string

const (
	// EventCommand carries a map view command.
	EventCommand EventType = "command"
	// EventNotify carries a user-facing notification the renderer displays
	// as a blocking message.
	EventNotify EventType = "notify"
)

// Event is an SSE event payload.
type Event struct {
	Type    EventType        `json:"type"`
	Command *mapview.Command `json:"command,omitempty"`
	Level   string           `json:"level,omitempty"`
	Message string           `json:"message,omitempty"`
}

// client represents one connected renderer.
type client struct {
	sessionID uuid.UUID
	events    chan Event
}

// Service manages renderer connections and event broadcasting. It is the
// command sink for the map view: every view mutation fans out to all
// connected renderers.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

// New creates a new stream service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

// Send implements mapview.Sink by broadcasting the command.
func (s *Service) Send(cmd mapview.Command) {
	c := cmd
	s.broadcast(Event{Type: EventCommand, Command: &c})
}

// Notify broadcasts a user-facing notification.
func (s *Service) Notify(level, message string) {
	s.broadcast(Event{Type: EventNotify, Level: level, Message: message})
}

// RegisterHandlers subscribes the stream to synchronizer notices so
// user-facing errors reach the renderer.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(poisync.EventNotice, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		notice, ok := event.(poisync.NoticeEvent)
		if !ok {
			return nil
		}
		s.Notify(notice.Level, notice.Message)
		return nil
	}))
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.sessionID] = append(s.clients[c.sessionID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	clients := s.clients[c.sessionID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.sessionID] = append(clients[:i], clients[i+1:]...)
			found = true
			break
		}
	}
	if len(s.clients[c.sessionID]) == 0 {
		delete(s.clients, c.sessionID)
	}

	// A client no longer in the registry was already closed by Close.
	if found {
		close(c.events)
	}
}

func (s *Service) broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			select {
			case c.events <- event:
			default:
				s.log.Warn("stream buffer full, dropping event", "session_id", c.sessionID)
			}
		}
	}
}

// Handler returns a Gin handler for SSE connections. The snapshot function
// supplies the commands that bring a fresh renderer to the current view
// state before live events flow.
func (s *Service) Handler(getSessionID func(*gin.Context) (uuid.UUID, bool), snapshot func() []mapview.Command) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := getSessionID(c)
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			sessionID: sessionID,
			events:    make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"sessionId": sessionID})
		for _, cmd := range snapshot() {
			snapCmd := cmd
			c.SSEvent(string(EventCommand), Event{Type: EventCommand, Command: &snapCmd})
		}
		c.Writer.Flush()

		s.log.Info("renderer connected", "session_id", sessionID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Info("renderer disconnected", "session_id", sessionID)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				c.SSEvent(string(event.Type), event)
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the stream service.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
