// Package host is the outbound binding to the spreadsheet host's REST API:
// the readiness handshake, atomic mutation batches, the bound-table fallback
// lookup, and selection cursor movement.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"map_widget_backend/platform/apperr"
	"map_widget_backend/platform/config"
	"map_widget_backend/platform/logger"
)

// Client talks to the spreadsheet host's document API.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	docID   string
	log     *logger.Logger
}

// NewClient creates a host client from configuration.
func NewClient(cfg config.HostConfig, log *logger.Logger) *Client {
	return &Client{
		client:  &http.Client{Timeout: cfg.GetHostTimeout()},
		baseURL: cfg.GetHostBaseURL(),
		apiKey:  cfg.GetHostAPIKey(),
		docID:   cfg.GetHostDocID(),
		log:     log,
	}
}

// Ready performs the readiness handshake, declaring the column contract and
// the full access level the widget needs to write rows.
func (c *Client) Ready(ctx context.Context, columns []Column) error {
	req := ReadyRequest{
		RequiredAccess: "full",
		Columns:        columns,
	}
	return c.do(ctx, http.MethodPost, c.docPath("ready"), req, nil)
}

// ApplyActions submits a batch of row mutations. The batch is applied
// atomically by the host: either every action lands or none does.
func (c *Client) ApplyActions(ctx context.Context, actions []Action) error {
	if len(actions) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, c.docPath("apply"), actions, nil)
}

type tableInfo struct {
	ID string `json:"id"`
}

type tablesResponse struct {
	Tables []tableInfo `json:"tables"`
}

// ResolveTableID looks up the table the widget is bound to. It is the
// fallback used when no table id was ever supplied via an options push.
func (c *Client) ResolveTableID(ctx context.Context) (string, error) {
	var resp tablesResponse
	if err := c.do(ctx, http.MethodGet, c.docPath("tables"), nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Tables) == 0 {
		return "", apperr.NotFound("document has no tables").WithOp("host.ResolveTableID")
	}
	return resp.Tables[0].ID, nil
}

type cursorRequest struct {
	RowID   int64  `json:"rowId"`
	TableID string `json:"tableId,omitempty"`
}

// SetCursor moves the host's row-selection cursor, optionally within an
// explicit table.
func (c *Client) SetCursor(ctx context.Context, rowID int64, tableID string) error {
	req := cursorRequest{RowID: rowID, TableID: tableID}
	return c.do(ctx, http.MethodPost, c.docPath("cursor"), req, nil)
}

func (c *Client) docPath(suffix string) string {
	return fmt.Sprintf("%s/api/docs/%s/%s", c.baseURL, c.docID, suffix)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to encode host request", err)
		}
		payload = encoded
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build host request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("host request failed", "method", method, "url", url, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, "spreadsheet host unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := statusError(resp.StatusCode)
		c.log.Error("host request rejected",
			"method", method,
			"url", url,
			"status", resp.StatusCode,
			"payload", string(payload),
		)
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.log.Error("failed to decode host response", "url", url, "error", err)
			return apperr.Wrap(apperr.KindUnavailable, "malformed host response", err)
		}
	}

	return nil
}

func statusError(status int) *apperr.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Forbidden("spreadsheet host denied access")
	case http.StatusNotFound:
		return apperr.NotFound("host document or table not found")
	default:
		return apperr.Unavailable(fmt.Sprintf("spreadsheet host rejected the call (status %d)", status))
	}
}
