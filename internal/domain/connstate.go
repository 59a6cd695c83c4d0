package domain

// ConnState is the lifecycle state of the streaming feed connection.
// Exactly one feed connection exists per process; its transitions gate
// whether the fallback poller is active.
type ConnState int

const (
	ConnUninstantiated ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosing
	ConnClosed
)

// String returns the human-readable state name used in logs and the API.
func (s ConnState) String() string {
	switch s {
	case ConnUninstantiated:
		return "uninstantiated"
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}
