// Package tasks owns the in-memory task list.
//
// Create is serialized by a mutex held across id allocation, append and the
// TaskCreated publish, so ids and events come out in the same order.
package tasks
