package domain

// GlobalTopic is the only topic. Every connection receives every event.
const GlobalTopic = "tasks"

// Sender is the capability every transport exposes to the bus. Send must be
// bounded in time (write deadline) and Close must be safe to call once after
// the last Send.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Pinger is implemented by transports that need keepalive frames. Ping is
// only ever called from the goroutine that calls Send.
type Pinger interface {
	Ping() error
}

// ConnState is the lifecycle of a single connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a connection left the open state.
type CloseReason string

const (
	ReasonPeerClosed  CloseReason = "peer_closed"
	ReasonWriteFailed CloseReason = "write_failed"
	ReasonMailboxFull CloseReason = "mailbox_full"
	ReasonPingFailed  CloseReason = "ping_failed"
	ReasonShutdown    CloseReason = "shutdown"
	ReasonRejected    CloseReason = "rejected"

	// ReasonClosing labels a delivery that reached a connection which was
	// already closing but not yet released.
	ReasonClosing CloseReason = "closing"
)

// ReasonCloser is implemented by transports that can tell the peer why the
// connection is going away. It replaces Close when available.
type ReasonCloser interface {
	CloseWithReason(reason CloseReason) error
}
