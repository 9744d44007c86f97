// Package redis mirrors published events onto a Redis channel for
// out-of-process observers. The mirror is write-only: nothing in this
// process subscribes to it.
package redis
