package domain

// EventPublisher accepts events for fan-out. Publish never fails; delivery
// problems are handled per connection behind it.
type EventPublisher interface {
	Publish(event Event)
}
