package vna

const (
	StateDisconnected State = iota
	StateConnected
	StateVerified
	StateConfigured
	StateArmed
	StateMeasurementComplete
	StateClosed
)

// State is the lifecycle position of a Session
type State int

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateVerified:
		return "verified"
	case StateConfigured:
		return "configured"
	case StateArmed:
		return "armed"
	case StateMeasurementComplete:
		return "measurement complete"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
