package action

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Sampled value defaults when the charge point omits them.
const (
	DefaultMeasurand = "Energy.Active.Import.Register"
	DefaultUnit      = "Wh"
)

type MeterValuesRequest struct {
	ConnectorID   *int         `json:"connectorId"`
	TransactionID *int         `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

type MeterValue struct {
	Timestamp    string         `json:"timestamp,omitempty"`
	SampledValue []SampledValue `json:"sampledValue"`
}

type SampledValue struct {
	Value     *Reading `json:"value"`
	Context   string   `json:"context,omitempty"`
	Format    string   `json:"format,omitempty"`
	Measurand string   `json:"measurand,omitempty"`
	Phase     string   `json:"phase,omitempty"`
	Location  string   `json:"location,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// Reading is a sampled value as text. OCPP sends it as a string, but some
// charge points send a bare number; its literal text is kept unchanged.
type Reading string

func (r *Reading) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*r = Reading(text)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(text), Field: "value"}
	}
	*r = Reading(num.String())
	return nil
}

// Sample is a validated sampled value with defaults applied.
type Sample struct {
	Timestamp string
	Value     string
	Measurand string
	Unit      string
}

// Samples validates the request and flattens its sampled values.
func (r *MeterValuesRequest) Samples() ([]Sample, error) {
	if r.MeterValue == nil {
		return nil, missing("meterValue")
	}
	var out []Sample
	for i, mv := range r.MeterValue {
		if mv.SampledValue == nil {
			return nil, missing(fmt.Sprintf("meterValue[%d].sampledValue", i))
		}
		for j, sv := range mv.SampledValue {
			if sv.Value == nil {
				return nil, missing(fmt.Sprintf("meterValue[%d].sampledValue[%d].value", i, j))
			}
			sample := Sample{
				Timestamp: mv.Timestamp,
				Value:     string(*sv.Value),
				Measurand: sv.Measurand,
				Unit:      sv.Unit,
			}
			if sample.Measurand == "" {
				sample.Measurand = DefaultMeasurand
			}
			if sample.Unit == "" {
				sample.Unit = DefaultUnit
			}
			out = append(out, sample)
		}
	}
	return out, nil
}

// MeterValues logs the samples reported by the charge point.
func (h *Handlers) MeterValues(s *session.Session, payload json.RawMessage) (ocpp.Message, error) {
	var req MeterValuesRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	connectorID, err := requiredInt("connectorId", req.ConnectorID)
	if err != nil {
		return nil, err
	}
	samples, err := req.Samples()
	if err != nil {
		return nil, err
	}

	event := s.Logger().Info().
		Int("connector_id", connectorID).
		Int("meter_values", len(req.MeterValue))
	if req.TransactionID != nil {
		event = event.Int("transaction_id", *req.TransactionID)
	}
	event.Msg("meter values")

	for _, sample := range samples {
		s.Logger().Debug().
			Str("measurand", sample.Measurand).
			Str("value", sample.Value).
			Str("unit", sample.Unit).
			Str("timestamp", sample.Timestamp).
			Msg("sampled value")
	}

	return result(s, emptyResponse{})
}
