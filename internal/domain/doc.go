// Package domain defines the shared types and the contracts between the task
// store, the event bus and the transports.
//
// No implementation code lives here; interfaces sit on this side so that
// broadcast, tasks and the adapters never import each other directly.
package domain
