package action

import (
	"encoding/json"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// RegistrationAccepted is the only registration status this server issues.
const RegistrationAccepted = "Accepted"

type BootNotificationRequest struct {
	ChargePointVendor       *string `json:"chargePointVendor"`
	ChargePointModel        *string `json:"chargePointModel"`
	ChargePointSerialNumber string  `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string  `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string  `json:"firmwareVersion,omitempty"`
}

type BootNotificationResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

// BootNotification registers the charge point's vendor and model and marks it Available.
func (h *Handlers) BootNotification(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req BootNotificationRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	vendor, err := requiredString("chargePointVendor", req.ChargePointVendor)
	if err != nil {
		return nil, err
	}
	model, err := requiredString("chargePointModel", req.ChargePointModel)
	if err != nil {
		return nil, err
	}

	s.SetIdentity(vendor, model)
	s.SetState(domain.StateAvailable)

	s.Logger().Info().
		Str("vendor", vendor).
		Str("model", model).
		Str("firmware", req.FirmwareVersion).
		Msg("boot notification")

	h.notify(s, domain.EventBooted, map[string]string{"vendor": vendor, "model": model})

	return result(s, BootNotificationResponse{
		Status:      RegistrationAccepted,
		CurrentTime: h.currentTime(),
		Interval:    h.interval,
	})
}
