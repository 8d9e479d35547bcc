// Package router dispatches decoded OCPP requests to action handlers and
// turns every failure into a CallError so a connection never sees a panic.
package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/metrics"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Outcomes recorded for every routed frame.
const (
	OutcomeOK            = "ok"
	OutcomeCallError     = "call_error"
	OutcomeUnknownAction = "unknown_action"
	OutcomeMalformed     = "malformed"
	OutcomeHandlerFault  = "handler_fault"
	OutcomeIgnored       = "ignored"
)

// ErrDuplicateAction is returned by New when two routes name the same action.
var ErrDuplicateAction = errors.New("duplicate action")

// Router holds the action table. The table is fixed by New and only read
// afterwards, so Route may be called from any number of goroutines.
type Router struct {
	handlers map[string]Handler
	logger   zerolog.Logger
}

// New builds a router from routes.
func New(routes ...Route) (*Router, error) {
	handlers := make(map[string]Handler, len(routes))
	for _, rt := range routes {
		if rt.Action == "" || rt.Handler == nil {
			return nil, fmt.Errorf("router: route %q has no action or handler", rt.Action)
		}
		if _, exists := handlers[rt.Action]; exists {
			return nil, fmt.Errorf("router: %w: %s", ErrDuplicateAction, rt.Action)
		}
		handlers[rt.Action] = rt.Handler
	}
	return &Router{
		handlers: handlers,
		logger:   log.WithComponent("router"),
	}, nil
}

// Actions returns the registered action names.
func (r *Router) Actions() []string {
	out := make([]string, 0, len(r.handlers))
	for action := range r.handlers {
		out = append(out, action)
	}
	return out
}

// Route handles one inbound text frame for s and returns the envelope to
// send back, or nil when the frame needs no answer (a CallResult or
// CallError sent by the charge point).
func (r *Router) Route(s *session.Session, data []byte) ocpp.Message {
	frame, err := ocpp.ParseFrame(data)
	if err != nil {
		return r.malformed(s, "", err)
	}

	msgType, err := frame.MessageType()
	if err != nil {
		return r.malformed(s, frame.CorrelationID(), err)
	}
	if msgType != ocpp.MessageTypeCall {
		r.logger.Debug().
			Str(log.FieldChargePointID, s.ID()).
			Str(log.FieldCorrelationID, frame.CorrelationID()).
			Int(log.FieldMessageType, int(msgType)).
			Msg("ignoring non-call message")
		metrics.RecordFrame("", OutcomeIgnored)
		return nil
	}

	call, err := frame.Call()
	if err != nil {
		return r.malformed(s, frame.CorrelationID(), err)
	}

	s.SetPendingCorrelationID(call.ID)

	handler, ok := r.handlers[call.Action]
	if !ok {
		r.logger.Warn().
			Str(log.FieldChargePointID, s.ID()).
			Str(log.FieldCorrelationID, call.ID).
			Str(log.FieldAction, call.Action).
			Msg("unknown action")
		metrics.RecordFrame(metrics.ActionUnknown, OutcomeUnknownAction)
		return ocpp.NewCallError(call.ID, ocpp.NotImplemented, "Unknown action: "+call.Action)
	}

	start := time.Now()
	resp, err := invoke(handler, s, call)
	metrics.ObserveHandlerDuration(call.Action, time.Since(start))

	if err != nil {
		r.logger.Error().
			Err(err).
			Str(log.FieldChargePointID, s.ID()).
			Str(log.FieldCorrelationID, call.ID).
			Str(log.FieldAction, call.Action).
			Msg("handler failed")
		metrics.RecordFrame(call.Action, OutcomeHandlerFault)
		return ocpp.NewCallError(call.ID, ocpp.InternalError, err.Error())
	}

	if resp.Type() == ocpp.MessageTypeCallError {
		metrics.RecordFrame(call.Action, OutcomeCallError)
	} else {
		metrics.RecordFrame(call.Action, OutcomeOK)
	}
	return resp
}

func (r *Router) malformed(s *session.Session, id string, err error) ocpp.Message {
	r.logger.Warn().
		Err(err).
		Str(log.FieldChargePointID, s.ID()).
		Str(log.FieldCorrelationID, id).
		Msg("malformed frame")
	metrics.RecordFrame("", OutcomeMalformed)
	return ocpp.NewCallError(id, ocpp.ProtocolError, err.Error())
}

// invoke runs h and converts a panic or a missing response into an error.
func invoke(h Handler, s *session.Session, call ocpp.Call) (resp ocpp.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = fmt.Errorf("%s handler panicked: %v", call.Action, rec)
		}
	}()

	resp, err = h(s, call.Payload)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%s handler returned no response", call.Action)
	}
	return resp, nil
}
