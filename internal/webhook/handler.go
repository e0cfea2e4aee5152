// Package webhook is the inbound surface for host pushes: the record set,
// the current selection, and the widget options. Payload decoding is
// tolerant - a malformed value degrades, it never fails a batch.
package webhook

import (
	"fmt"
	"net/http"

	"map_widget_backend/internal/poisync"
	"map_widget_backend/platform/httpkit"
	"map_widget_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles host push HTTP requests.
type Handler struct {
	svc   *poisync.Service
	dedup Dedup
	log   *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *poisync.Service, dedup Dedup, log *logger.Logger) *Handler {
	return &Handler{svc: svc, dedup: dedup, log: log}
}

type recordPayload struct {
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

// RecordsPush is a full record-set push from the host.
type RecordsPush struct {
	DeliveryID string          `json:"deliveryId"`
	Records    []recordPayload `json:"records"`
}

// HandleRecords processes POST /hooks/records.
func (h *Handler) HandleRecords(c *gin.Context) {
	var push RecordsPush
	if err := c.ShouldBindJSON(&push); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid records payload", nil)
		return
	}

	first, err := h.dedup.FirstDelivery(c.Request.Context(), push.DeliveryID)
	if err != nil {
		// A broken dedup store must not stall data flow; apply the batch.
		h.log.Warn("dedup check failed, applying anyway", "delivery_id", push.DeliveryID, "error", err)
		first = true
	}
	if !first {
		h.log.Info("duplicate delivery skipped", "delivery_id", push.DeliveryID)
		httpkit.OK(c, gin.H{"status": "duplicate"})
		return
	}

	records := make([]poisync.Record, 0, len(push.Records))
	for _, raw := range push.Records {
		records = append(records, poisync.RecordFromFields(raw.ID, raw.Fields))
	}

	h.log.HostPush("records", len(records))
	h.svc.ReplaceRecords(c.Request.Context(), records)
	httpkit.OK(c, gin.H{"status": "applied", "records": len(records)})
}

// SelectionPush is a selection-change push. A null record means deselection.
type SelectionPush struct {
	Record *recordPayload `json:"record"`
}

// HandleSelection processes POST /hooks/selection.
func (h *Handler) HandleSelection(c *gin.Context) {
	var push SelectionPush
	if err := c.ShouldBindJSON(&push); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid selection payload", nil)
		return
	}

	var rec *poisync.Record
	if push.Record != nil {
		decoded := poisync.RecordFromFields(push.Record.ID, push.Record.Fields)
		rec = &decoded
	}

	h.log.HostPush("selection", boolToCount(rec != nil))
	h.svc.SelectionChanged(c.Request.Context(), rec)
	httpkit.OK(c, gin.H{"status": "applied"})
}

// OptionsPush is a widget-options push. The host has carried the table id in
// several places across revisions; all are accepted.
type OptionsPush struct {
	Options     map[string]any `json:"options"`
	Interaction map[string]any `json:"interaction"`
}

// HandleOptions processes POST /hooks/options.
func (h *Handler) HandleOptions(c *gin.Context) {
	var push OptionsPush
	if err := c.ShouldBindJSON(&push); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid options payload", nil)
		return
	}

	opts := poisync.Options{
		TableID:            stringValue(push.Options, "tableId"),
		TableRef:           refString(push.Options, "tableRef"),
		InteractionTableID: stringValue(push.Interaction, "tableId"),
	}

	h.log.HostPush("options", 1)
	h.svc.OptionsChanged(c.Request.Context(), opts)
	httpkit.OK(c, gin.H{"status": "applied"})
}

func stringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// refString stringifies a table ref that may arrive as a number.
func refString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
