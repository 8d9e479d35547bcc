package domain

import "fmt"

// ChargePointState is the server-side lifecycle state of one charge point.
// No transition table is enforced; any handler may set any state.
type ChargePointState int

const (
	StateDisconnected ChargePointState = iota
	StateConnected
	StateAvailable
	StatePreparing
	StateCharging
	StateFinishing
	StateReserved
	StateUnavailable
	StateFaulted
)

var stateNames = [...]string{
	StateDisconnected: "Disconnected",
	StateConnected:    "Connected",
	StateAvailable:    "Available",
	StatePreparing:    "Preparing",
	StateCharging:     "Charging",
	StateFinishing:    "Finishing",
	StateReserved:     "Reserved",
	StateUnavailable:  "Unavailable",
	StateFaulted:      "Faulted",
}

func (s ChargePointState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state by name so JSON listings stay readable.
func (s ChargePointState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ChargePointState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = ChargePointState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown charge point state %q", text)
}

// StateFromStatus maps an OCPP 1.6 StatusNotification status to a state.
// Suspended statuses count as Charging. ok is false for unrecognised statuses.
func StateFromStatus(status string) (state ChargePointState, ok bool) {
	switch status {
	case "Available":
		return StateAvailable, true
	case "Preparing":
		return StatePreparing, true
	case "Charging", "SuspendedEV", "SuspendedEVSE":
		return StateCharging, true
	case "Finishing":
		return StateFinishing, true
	case "Reserved":
		return StateReserved, true
	case "Unavailable":
		return StateUnavailable, true
	case "Faulted":
		return StateFaulted, true
	default:
		return 0, false
	}
}
