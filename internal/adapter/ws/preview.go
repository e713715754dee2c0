// Package ws implements the WebSocket endpoint behind the live document
// preview: the form page streams its current state up and receives the
// rendered document HTML back on every change.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/automan-solutions/challandesk/internal/domain/branding"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/preview"
)

// request is one preview refresh sent by the form page.
type request struct {
	Form      challan.Form `json:"form"`
	ChallanNo string       `json:"challan_no"`
	GivenBy   string       `json:"given_by"`
}

// response carries the rendered document back to the page.
type response struct {
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// PreviewHandler upgrades the connection and serves render round trips
// until the client goes away. The branding template is resolved once per
// connection by the caller; the design does not change mid-edit.
type PreviewHandler struct {
	Renderer *preview.Renderer
	Log      *slog.Logger
}

// Serve runs the preview loop for one connection.
func (h *PreviewHandler) Serve(w http.ResponseWriter, r *http.Request, design branding.Template) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.Log.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx := r.Context()
	for {
		var req request
		if err := readJSON(ctx, conn, &req); err != nil {
			return
		}

		resp := response{}
		html, err := h.Renderer.Render(preview.Input{
			Template:  design,
			Form:      req.Form,
			ChallanNo: req.ChallanNo,
			GivenBy:   req.GivenBy,
		})
		if err != nil {
			h.Log.Error("preview render failed", "error", err)
			resp.Error = "preview unavailable"
		} else {
			resp.HTML = string(html)
		}

		if err := writeJSON(ctx, conn, resp); err != nil {
			return
		}
	}
}

func readJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
