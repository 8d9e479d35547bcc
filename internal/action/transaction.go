package action

import (
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// DefaultStopReason is assumed when StopTransaction omits a reason.
const DefaultStopReason = "Local"

// TransactionIDs issues transaction ids shared by every connection.
// Ids start at 1, are not persisted and restart after a process restart.
type TransactionIDs struct {
	last atomic.Int64
}

// Next returns the next id. It is safe for concurrent use.
func (t *TransactionIDs) Next() int64 {
	return t.last.Add(1)
}

type StartTransactionRequest struct {
	ConnectorID   *int    `json:"connectorId"`
	IdTag         *string `json:"idTag"`
	MeterStart    *int    `json:"meterStart"`
	Timestamp     string  `json:"timestamp,omitempty"`
	ReservationID *int    `json:"reservationId,omitempty"`
}

type StartTransactionResponse struct {
	TransactionID int64     `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

// StartTransaction issues a transaction id and marks the charge point Charging.
func (h *Handlers) StartTransaction(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req StartTransactionRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	connectorID, err := requiredInt("connectorId", req.ConnectorID)
	if err != nil {
		return nil, err
	}
	idTag, err := requiredString("idTag", req.IdTag)
	if err != nil {
		return nil, err
	}
	meterStart, err := requiredInt("meterStart", req.MeterStart)
	if err != nil {
		return nil, err
	}

	txID := h.transactions.Next()
	s.SetState(domain.StateCharging)

	s.Logger().Info().
		Int("connector_id", connectorID).
		Str("id_tag", idTag).
		Int("meter_start", meterStart).
		Int64("transaction_id", txID).
		Msg("start transaction")

	h.notify(s, domain.EventTransactionStarted, map[string]string{
		"transactionId": strconv.FormatInt(txID, 10),
		"connectorId":   strconv.Itoa(connectorID),
		"idTag":         idTag,
		"meterStart":    strconv.Itoa(meterStart),
	})

	return result(s, StartTransactionResponse{
		TransactionID: txID,
		IdTagInfo:     IdTagInfo{Status: AuthorizationAccepted},
	})
}

type StopTransactionRequest struct {
	TransactionID *int    `json:"transactionId"`
	MeterStop     *int    `json:"meterStop"`
	Timestamp     string  `json:"timestamp,omitempty"`
	IdTag         *string `json:"idTag,omitempty"`
	Reason        *string `json:"reason,omitempty"`
}

type StopTransactionResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

// StopTransaction closes a transaction and marks the charge point Available.
// idTagInfo is only returned when the request named an idTag.
func (h *Handlers) StopTransaction(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req StopTransactionRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	txID, err := requiredInt("transactionId", req.TransactionID)
	if err != nil {
		return nil, err
	}
	meterStop, err := requiredInt("meterStop", req.MeterStop)
	if err != nil {
		return nil, err
	}
	idTag := optionalString(req.IdTag, "")
	reason := optionalString(req.Reason, DefaultStopReason)

	s.SetState(domain.StateAvailable)

	s.Logger().Info().
		Int("transaction_id", txID).
		Int("meter_stop", meterStop).
		Str("reason", reason).
		Msg("stop transaction")

	h.notify(s, domain.EventTransactionStopped, map[string]string{
		"transactionId": strconv.Itoa(txID),
		"meterStop":     strconv.Itoa(meterStop),
		"reason":        reason,
	})

	var resp StopTransactionResponse
	if idTag != "" {
		resp.IdTagInfo = &IdTagInfo{Status: AuthorizationAccepted}
	}
	return result(s, resp)
}
