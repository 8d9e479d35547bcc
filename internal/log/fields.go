package log

// Canonical field names for structured logging.
const (
	FieldComponent     = "component"
	FieldChargePointID = "charge_point_id"
	FieldConnID        = "conn_id"
	FieldRemoteAddr    = "remote_addr"
	FieldCorrelationID = "correlation_id"
	FieldAction        = "action"
	FieldMessageType   = "message_type"
	FieldOldState      = "old_state"
	FieldNewState      = "new_state"
	FieldSubject       = "subject"
)
