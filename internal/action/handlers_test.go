package action

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
)

func TestBootNotification(t *testing.T) {
	t.Parallel()

	h, n := newTestHandlers()
	s := newTestSession("test-001")

	msg, err := h.BootNotification(s, json.RawMessage(`{"chargePointVendor":"TestVendor","chargePointModel":"TestModel"}`))
	res, body := callResult(t, msg, err)

	assert.Equal(t, "test-001", res.ID)
	assert.Equal(t, "Accepted", body["status"])
	assert.Equal(t, "2024-01-15T10:00:00Z", body["currentTime"])
	assert.EqualValues(t, 300, body["interval"])

	assert.Equal(t, "TestVendor", s.Vendor())
	assert.Equal(t, "TestModel", s.Model())
	assert.Equal(t, domain.StateAvailable, s.State())

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBooted, events[0].Type)
	assert.Equal(t, "CP001", events[0].ChargePointID)
	assert.Equal(t, domain.StateAvailable, events[0].State)
	assert.Equal(t, "TestVendor", events[0].Attributes["vendor"])
}

func TestBootNotificationCustomInterval(t *testing.T) {
	t.Parallel()

	h := New(Config{HeartbeatInterval: 60})
	msg, err := h.BootNotification(newTestSession("b2"), json.RawMessage(`{"chargePointVendor":"V","chargePointModel":"M"}`))
	_, body := callResult(t, msg, err)
	assert.EqualValues(t, 60, body["interval"])
}

func TestBootNotificationMissingFields(t *testing.T) {
	t.Parallel()

	h, n := newTestHandlers()

	tests := []struct {
		payload string
		field   string
	}{
		{payload: `{"chargePointModel":"M"}`, field: "chargePointVendor"},
		{payload: `{"chargePointVendor":"V"}`, field: "chargePointModel"},
	}

	for _, tt := range tests {
		s := newTestSession("b3")
		_, err := h.BootNotification(s, json.RawMessage(tt.payload))

		var perr *PayloadError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.field, perr.Field)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Equal(t, domain.StateConnected, s.State())
	}
	assert.Empty(t, n.Events())
}

func TestBootNotificationWrongType(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	_, err := h.BootNotification(newTestSession("b4"), json.RawMessage(`{"chargePointVendor":5,"chargePointModel":"M"}`))

	var perr *PayloadError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "chargePointVendor", perr.Field)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestHeartbeat(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	s := newTestSession("hb-001")

	msg, err := h.Heartbeat(s, json.RawMessage(`{}`))
	res, body := callResult(t, msg, err)

	assert.Equal(t, "hb-001", res.ID)
	assert.Equal(t, map[string]any{"currentTime": "2024-01-15T10:00:00Z"}, body)
	assert.Equal(t, domain.StateConnected, s.State())
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	tests := []struct {
		idTag string
		want  string
	}{
		{idTag: "RFID12345678", want: AuthorizationAccepted},
		{idTag: "BLOCKED001", want: AuthorizationBlocked},
		{idTag: "EXPIRED001", want: AuthorizationExpired},
		{idTag: "INVALID001", want: AuthorizationInvalid},
		{idTag: "blocked001", want: AuthorizationAccepted},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.idTag, func(t *testing.T) {
			t.Parallel()

			msg, err := h.Authorize(newTestSession("auth-001"), json.RawMessage(`{"idTag":"`+tt.idTag+`"}`))
			res, body := callResult(t, msg, err)

			assert.Equal(t, "auth-001", res.ID)
			info, ok := body["idTagInfo"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.want, info["status"])
		})
	}
}

func TestAuthorizeMissingIdTag(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	_, err := h.Authorize(newTestSession("auth-002"), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrMissingField)
	assert.EqualError(t, err, "missing required field: idTag")
}

func TestStartTransaction(t *testing.T) {
	t.Parallel()

	h, n := newTestHandlers()
	s := newTestSession("start-001")

	msg, err := h.StartTransaction(s, json.RawMessage(`{"connectorId":1,"idTag":"RFID12345678","meterStart":1000,"timestamp":"2024-01-15T10:00:00Z"}`))
	res, body := callResult(t, msg, err)

	assert.Equal(t, "start-001", res.ID)
	assert.EqualValues(t, 1, body["transactionId"])
	assert.Equal(t, map[string]any{"status": "Accepted"}, body["idTagInfo"])
	assert.Equal(t, domain.StateCharging, s.State())

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTransactionStarted, events[0].Type)
	assert.Equal(t, "1", events[0].Attributes["transactionId"])
}

func TestStartTransactionMissingFields(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	tests := []struct {
		payload string
		field   string
	}{
		{payload: `{"idTag":"A","meterStart":0}`, field: "connectorId"},
		{payload: `{"connectorId":1,"meterStart":0}`, field: "idTag"},
		{payload: `{"connectorId":1,"idTag":"A"}`, field: "meterStart"},
	}

	for _, tt := range tests {
		_, err := h.StartTransaction(newTestSession("start-002"), json.RawMessage(tt.payload))
		var perr *PayloadError
		require.ErrorAs(t, err, &perr, tt.payload)
		assert.Equal(t, tt.field, perr.Field)
	}

	// A rejected request must not consume an id.
	msg, err := h.StartTransaction(newTestSession("start-003"), json.RawMessage(`{"connectorId":1,"idTag":"A","meterStart":0}`))
	_, body := callResult(t, msg, err)
	assert.EqualValues(t, 1, body["transactionId"])
}

func TestTransactionIDsConcurrent(t *testing.T) {
	t.Parallel()

	var ids TransactionIDs
	const n = 100

	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- ids.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool, n)
	for id := range seen {
		assert.False(t, unique[id], "duplicate id %d", id)
		unique[id] = true
		assert.True(t, id >= 1 && id <= n)
	}
	assert.Len(t, unique, n)
}

func TestStopTransaction(t *testing.T) {
	t.Parallel()

	h, n := newTestHandlers()

	tests := []struct {
		name        string
		payload     string
		wantIdTagOK bool
	}{
		{
			name:    "without idTag",
			payload: `{"transactionId":123,"meterStop":15000,"timestamp":"2024-01-15T11:00:00Z"}`,
		},
		{
			name:        "with idTag",
			payload:     `{"transactionId":123,"meterStop":15000,"idTag":"RFID12345678"}`,
			wantIdTagOK: true,
		},
	}

	for _, tt := range tests {
		s := newTestSession("stop-001")
		s.SetState(domain.StateCharging)

		msg, err := h.StopTransaction(s, json.RawMessage(tt.payload))
		res, body := callResult(t, msg, err)

		assert.Equal(t, "stop-001", res.ID, tt.name)
		assert.Equal(t, domain.StateAvailable, s.State(), tt.name)
		if tt.wantIdTagOK {
			assert.Equal(t, map[string]any{"status": "Accepted"}, body["idTagInfo"], tt.name)
		} else {
			assert.NotContains(t, body, "idTagInfo", tt.name)
		}
	}

	events := n.Events()
	require.Len(t, events, 2)
	assert.Equal(t, DefaultStopReason, events[0].Attributes["reason"])
}

func TestStopTransactionMissingFields(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	_, err := h.StopTransaction(newTestSession("stop-002"), json.RawMessage(`{"meterStop":1}`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = h.StopTransaction(newTestSession("stop-003"), json.RawMessage(`{"transactionId":1}`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestStatusNotification(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	tests := []struct {
		status string
		want   domain.ChargePointState
	}{
		{status: "Available", want: domain.StateAvailable},
		{status: "Preparing", want: domain.StatePreparing},
		{status: "Charging", want: domain.StateCharging},
		{status: "SuspendedEV", want: domain.StateCharging},
		{status: "SuspendedEVSE", want: domain.StateCharging},
		{status: "Finishing", want: domain.StateFinishing},
		{status: "Reserved", want: domain.StateReserved},
		{status: "Unavailable", want: domain.StateUnavailable},
		{status: "Faulted", want: domain.StateFaulted},
		{status: "Exploded", want: domain.StateConnected},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()

			s := newTestSession("status-001")
			msg, err := h.StatusNotification(s, json.RawMessage(`{"connectorId":1,"errorCode":"NoError","status":"`+tt.status+`"}`))
			res, body := callResult(t, msg, err)

			assert.Equal(t, "status-001", res.ID)
			assert.Empty(t, body)
			assert.Equal(t, tt.want, s.State())
		})
	}
}

func TestStatusNotificationPermitsAnyTransition(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	s := newTestSession("status-002")
	s.SetState(domain.StateFaulted)

	_, err := h.StatusNotification(s, json.RawMessage(`{"connectorId":1,"errorCode":"NoError","status":"Charging"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StateCharging, s.State())
}

func TestStatusNotificationMissingFields(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	for _, payload := range []string{
		`{"errorCode":"NoError","status":"Available"}`,
		`{"connectorId":1,"status":"Available"}`,
		`{"connectorId":1,"errorCode":"NoError"}`,
	} {
		_, err := h.StatusNotification(newTestSession("status-003"), json.RawMessage(payload))
		assert.ErrorIs(t, err, ErrMissingField, payload)
	}
}

func TestMeterValues(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "empty meter value list",
			payload: `{"connectorId":1,"meterValue":[]}`,
		},
		{
			name:    "with transaction id",
			payload: `{"connectorId":1,"transactionId":123,"meterValue":[]}`,
		},
		{
			name: "multiple sampled values",
			payload: `{"connectorId":1,"meterValue":[{"timestamp":"2024-01-15T10:00:00Z","sampledValue":[
				{"value":"5000","measurand":"Energy.Active.Import.Register","unit":"Wh"},
				{"value":"230","measurand":"Voltage","unit":"V"},
				{"value":"16","measurand":"Current.Import","unit":"A"}]}]}`,
		},
	}

	for _, tt := range tests {
		msg, err := h.MeterValues(newTestSession("meter-001"), json.RawMessage(tt.payload))
		res, body := callResult(t, msg, err)
		assert.Equal(t, "meter-001", res.ID, tt.name)
		assert.Empty(t, body, tt.name)
	}
}

func TestMeterValuesSamplesDefaults(t *testing.T) {
	t.Parallel()

	var req MeterValuesRequest
	require.NoError(t, json.Unmarshal([]byte(`{"connectorId":1,"meterValue":[{"timestamp":"t1","sampledValue":[{"value":"5000"}]}]}`), &req))

	samples, err := req.Samples()
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, Sample{Timestamp: "t1", Value: "5000", Measurand: DefaultMeasurand, Unit: DefaultUnit}, samples[0])
}

func TestMeterValuesMissingFields(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()

	tests := []struct {
		payload string
		field   string
	}{
		{payload: `{"meterValue":[]}`, field: "connectorId"},
		{payload: `{"connectorId":1}`, field: "meterValue"},
		{payload: `{"connectorId":1,"meterValue":[{}]}`, field: "meterValue[0].sampledValue"},
		{payload: `{"connectorId":1,"meterValue":[{"sampledValue":[{"unit":"Wh"}]}]}`, field: "meterValue[0].sampledValue[0].value"},
	}

	for _, tt := range tests {
		_, err := h.MeterValues(newTestSession("meter-002"), json.RawMessage(tt.payload))
		var perr *PayloadError
		require.ErrorAs(t, err, &perr, tt.payload)
		assert.Equal(t, tt.field, perr.Field)
	}
}

func TestMeterValuesNumericReadings(t *testing.T) {
	t.Parallel()

	var req MeterValuesRequest
	require.NoError(t, json.Unmarshal([]byte(`{"connectorId":1,"meterValue":[{"sampledValue":[
		{"value":5000},{"value":12.75,"unit":"kWh"},{"value":"230"}]}]}`), &req))

	samples, err := req.Samples()
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, "5000", samples[0].Value)
	assert.Equal(t, "12.75", samples[1].Value)
	assert.Equal(t, "kWh", samples[1].Unit)
	assert.Equal(t, "230", samples[2].Value)

	h, _ := newTestHandlers()
	msg, err := h.MeterValues(newTestSession("meter-003"), json.RawMessage(`{"connectorId":1,"meterValue":[{"sampledValue":[{"value":42}]}]}`))
	res, _ := callResult(t, msg, err)
	assert.Equal(t, "meter-003", res.ID)
}

func TestMeterValuesRejectsNonScalarReading(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers()
	for _, payload := range []string{
		`{"connectorId":1,"meterValue":[{"sampledValue":[{"value":true}]}]}`,
		`{"connectorId":1,"meterValue":[{"sampledValue":[{"value":{"v":1}}]}]}`,
	} {
		_, err := h.MeterValues(newTestSession("meter-004"), json.RawMessage(payload))
		assert.ErrorIs(t, err, ErrInvalidField, payload)
	}
}
