package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/divyaflow/temple-ops/internal/middleware"
	"github.com/divyaflow/temple-ops/internal/service"
	"github.com/divyaflow/temple-ops/internal/store"
)

// StreamHandler exposes the change feeds over Server-Sent Events.  A
// client opens GET /v1/stream/:kind and receives one "snapshot" event
// holding the current role-filtered state, then a "change" event for
// every mutation it is allowed to see.  Slow clients are coalesced by
// the fanout layer, never buffered without bound.
type StreamHandler struct {
	Ops *service.Ops
}

func NewStreamHandler(ops *service.Ops) *StreamHandler {
	return &StreamHandler{Ops: ops}
}

// Stream serves one SSE connection until the client goes away.
func (h *StreamHandler) Stream(c echo.Context) error {
	kind := store.Kind(c.Param("kind"))
	snapshot, sub, err := h.Ops.Subscribe(kind, middleware.CurrentRole(c), middleware.CurrentUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	defer sub.Unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeSSE(res, "snapshot", snapshot); err != nil {
		return nil
	}
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeSSE(res, "change", ev); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data)
	return err
}
