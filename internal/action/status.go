package action

import (
	"encoding/json"
	"strconv"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

type StatusNotificationRequest struct {
	ConnectorID     *int    `json:"connectorId"`
	ErrorCode       *string `json:"errorCode"`
	Status          *string `json:"status"`
	Info            string  `json:"info,omitempty"`
	Timestamp       string  `json:"timestamp,omitempty"`
	VendorID        string  `json:"vendorId,omitempty"`
	VendorErrorCode string  `json:"vendorErrorCode,omitempty"`
}

// StatusNotification overwrites the session state with the reported status.
// Unrecognised statuses leave the state untouched.
func (h *Handlers) StatusNotification(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req StatusNotificationRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	connectorID, err := requiredInt("connectorId", req.ConnectorID)
	if err != nil {
		return nil, err
	}
	errorCode, err := requiredString("errorCode", req.ErrorCode)
	if err != nil {
		return nil, err
	}
	status, err := requiredString("status", req.Status)
	if err != nil {
		return nil, err
	}

	s.Logger().Info().
		Int("connector_id", connectorID).
		Str("status", status).
		Str("error_code", errorCode).
		Msg("status notification")

	if state, ok := domain.StateFromStatus(status); ok {
		s.SetState(state)
	} else {
		s.Logger().Warn().Str("status", status).Msg("unrecognised status, state unchanged")
	}

	h.notify(s, domain.EventStatusChanged, map[string]string{
		"connectorId": strconv.Itoa(connectorID),
		"status":      status,
		"errorCode":   errorCode,
	})

	return result(s, emptyResponse{})
}
