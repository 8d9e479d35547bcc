package action

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(e domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

func newTestHandlers() (*Handlers, *recordingNotifier) {
	n := &recordingNotifier{}
	return New(Config{Notifier: n, Now: func() time.Time { return fixedNow }}), n
}

func newTestSession(pending string) *session.Session {
	s := session.New("CP001", nil)
	s.SetPendingCorrelationID(pending)
	return s
}

// callResult asserts msg is a CallResult and decodes its payload.
func callResult(t *testing.T, msg ocpp.Message, err error) (ocpp.CallResult, map[string]any) {
	t.Helper()
	require.NoError(t, err)
	res, ok := msg.(ocpp.CallResult)
	require.True(t, ok, "expected CallResult, got %T", msg)

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Payload, &body))
	return res, body
}
