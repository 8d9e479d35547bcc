package router

import (
	"encoding/json"

	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Handler answers one action.
//
// It receives the request payload as a JSON object and returns a CallResult
// or CallError addressed with s.PendingCorrelationID(). It may update the
// session's state and identity but must not keep s after returning.
// A returned error (or a panic) is answered with an InternalError CallError.
type Handler func(s *session.Session, payload json.RawMessage) (ocpp.Message, error)

// Route binds an action name to its handler. Action names match exactly and are case-sensitive.
type Route struct {
	Action  string
	Handler Handler
}
