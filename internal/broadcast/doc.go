// Package broadcast fans events out to every open WebSocket connection.
//
// Registry holds the live set. Bus snapshots it on every publish and does a
// non-blocking enqueue into each connection's bounded mailbox; a full or
// closed mailbox is a delivery failure for that connection only. Each Conn
// owns one writer goroutine that drains its mailbox, and that goroutine's
// exit is the single place a connection's resources are released.
package broadcast
