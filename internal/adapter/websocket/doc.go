// Package websocket adapts gorilla/websocket connections to the transport
// capabilities the broadcast package needs (send, ping, close with reason) and
// parses the text commands clients send upstream.
package websocket
