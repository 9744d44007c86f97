package eventpublisher

import (
	"github.com/pscheid92/taskpulse/internal/domain"
)

// Bus is the in-process fan-out.
type Bus interface {
	Publish(ev domain.Event)
}

// Mirror is an optional out-of-process copy of the event stream.
type Mirror interface {
	Enqueue(ev domain.Event)
}

// EventPublisher implements domain.EventPublisher by composing the broadcast
// bus with the optional Redis mirror. Neither side can fail the publisher.
type EventPublisher struct {
	bus    Bus
	mirror Mirror
}

var _ domain.EventPublisher = (*EventPublisher)(nil)

// New accepts a nil mirror when mirroring is disabled.
func New(bus Bus, mirror Mirror) *EventPublisher {
	return &EventPublisher{bus: bus, mirror: mirror}
}

func (ep *EventPublisher) Publish(ev domain.Event) {
	ep.bus.Publish(ev)
	if ep.mirror != nil {
		ep.mirror.Enqueue(ev)
	}
}
