package api

import (
	"net/http"
	"sort"
	"strings"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/infra/websocket"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

const serviceName = "OCPP Central System"

type Handler struct {
	hub      *websocket.Hub
	basePath string
	upgrader gorilla.Upgrader
	logger   zerolog.Logger
}

func NewHandler(hub *websocket.Hub, basePath string) *Handler {
	return &Handler{
		hub:      hub,
		basePath: strings.TrimSuffix(basePath, "/"),
		upgrader: gorilla.Upgrader{
			Subprotocols: []string{ocpp.Subprotocol16},
			CheckOrigin: func(r *http.Request) bool {
				// Charge points are not browsers.
				return true
			},
		},
		logger: log.WithComponent("api"),
	}
}

// WebSocketHandler upgrades a charge point connection. The charge point
// identity is the last path segment below the base path.
func (h *Handler) WebSocketHandler(c echo.Context) error {
	req := c.Request()
	id := websocket.ChargePointIDFromPath(strings.TrimPrefix(req.URL.EscapedPath(), h.basePath))

	conn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.Warn().
			Err(err).
			Str(log.FieldChargePointID, id).
			Str(log.FieldRemoteAddr, c.RealIP()).
			Msg("websocket upgrade failed")
		return nil
	}
	if conn.Subprotocol() == "" {
		h.logger.Debug().Str(log.FieldChargePointID, id).Msg("no subprotocol negotiated")
	}

	client := h.hub.RegisterClient(conn, id, c.RealIP())

	go client.WritePump()
	go client.ReadPump()

	return nil
}

func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  serviceName,
		"sessions": h.hub.Registry().Count(),
	})
}

// SessionsResponse lists the live sessions.
type SessionsResponse struct {
	Count    int            `json:"count"`
	Sessions []session.Info `json:"sessions"`
}

func (h *Handler) ListSessions(c echo.Context) error {
	all := h.hub.Registry().All()
	infos := make([]session.Info, 0, len(all))
	for _, s := range all {
		infos = append(infos, s.Snapshot())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return c.JSON(http.StatusOK, SessionsResponse{Count: len(infos), Sessions: infos})
}

func (h *Handler) GetSession(c echo.Context) error {
	s, ok := h.hub.Registry().Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}
