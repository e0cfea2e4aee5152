package poisync

import "map_widget_backend/platform/events"

// Event names published by the synchronizer.
const (
	EventNotice         = "widget.notice"
	EventPOICreated     = "poi.created"
	EventPOIMoved       = "poi.moved"
	EventMarkersRebuilt = "markers.rebuilt"
)

// Notice levels.
const (
	NoticeError = "error"
	NoticeInfo  = "info"
)

// NoticeEvent is a user-facing notification. The renderer displays it as a
// blocking message, the browser analog of an alert.
type NoticeEvent struct {
	events.BaseEvent
	Level   string `json:"level"`
	Message string `json:"message"`
}

// EventName identifies the event type.
func (NoticeEvent) EventName() string { return EventNotice }

// POICreatedEvent records a successful append mutation.
type POICreatedEvent struct {
	events.BaseEvent
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Route any     `json:"route"`
}

// EventName identifies the event type.
func (POICreatedEvent) EventName() string { return EventPOICreated }

// POIMovedEvent records a successful coordinate update after a drag.
type POIMovedEvent struct {
	events.BaseEvent
	Tag int64   `json:"tag"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EventName identifies the event type.
func (POIMovedEvent) EventName() string { return EventPOIMoved }

// MarkersRebuiltEvent records a full marker-set rebuild from a host push.
type MarkersRebuiltEvent struct {
	events.BaseEvent
	Total    int `json:"total"`
	Rendered int `json:"rendered"`
}

// EventName identifies the event type.
func (MarkersRebuiltEvent) EventName() string { return EventMarkersRebuilt }
