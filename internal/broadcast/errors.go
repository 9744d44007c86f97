package broadcast

import (
	"fmt"

	"github.com/google/uuid"
)

// DeliveryError is a failure to hand an event to one connection.
type DeliveryError struct {
	ConnID uuid.UUID
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.ConnID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// HandshakeError means the connection never reached the open state and was
// never registered.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected (%s): %v", e.Reason, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }
