package action

import (
	"encoding/json"

	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

type HeartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

// Heartbeat answers with the server's current time.
func (h *Handlers) Heartbeat(s *session.Session, _ json.RawMessage) (ocpp.Message, error) {
	s.Logger().Debug().Msg("heartbeat")
	return result(s, HeartbeatResponse{CurrentTime: h.currentTime()})
}
