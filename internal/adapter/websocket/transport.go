package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/domain"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPongTimeout  = 60 * time.Second
	defaultReadLimit    = 4096
)

// Options configure a Transport. Zero values fall back to defaults.
type Options struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	// ReadLimit is the largest inbound frame in bytes. Larger frames close
	// the connection with 1009.
	ReadLimit int64
	Clock     clockwork.Clock
}

// NewUpgrader builds the HTTP upgrader used by the /ws route.
func NewUpgrader(checkOrigin func(*http.Request) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
}

// Transport wraps one gorilla connection. Send is called only from the
// connection's writer goroutine; Ping and CloseWithReason go through
// WriteControl, which gorilla allows concurrently with other writers.
type Transport struct {
	conn         *websocket.Conn
	clock        clockwork.Clock
	writeTimeout time.Duration
	pongTimeout  time.Duration

	closeOnce sync.Once
	closeErr  error
}

func NewTransport(conn *websocket.Conn, opts Options) *Transport {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaultPongTimeout
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	t := &Transport{
		conn:         conn,
		clock:        opts.Clock,
		writeTimeout: opts.WriteTimeout,
		pongTimeout:  opts.PongTimeout,
	}
	conn.SetReadLimit(opts.ReadLimit)
	t.configurePongHandler()
	return t
}

func (t *Transport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *Transport) Send(data []byte) error {
	t.updateWriteDeadline()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, t.writeDeadline())
}

func (t *Transport) Close() error {
	return t.CloseWithReason(domain.ReasonPeerClosed)
}

// CloseWithReason sends a close frame matching reason and closes the socket.
// Only the first call has any effect.
func (t *Transport) CloseWithReason(reason domain.CloseReason) error {
	t.closeOnce.Do(func() {
		code, text := closeFrame(reason)
		msg := websocket.FormatCloseMessage(code, text)
		// Best effort: the peer may already be gone.
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, t.writeDeadline())
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// ReadLoop reads frames until the peer goes away or the socket is closed and
// hands every text frame to handle. The returned error is nil for a normal
// close initiated by the peer.
func (t *Transport) ReadLoop(handle func(text string)) error {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}
		t.updateReadDeadline()

		if messageType == websocket.TextMessage {
			handle(string(data))
		}
	}
}

func (t *Transport) configurePongHandler() {
	t.updateReadDeadline()
	t.conn.SetPongHandler(func(string) error {
		t.updateReadDeadline()
		return nil
	})
}

func (t *Transport) writeDeadline() time.Time {
	return t.clock.Now().Add(t.writeTimeout)
}

func (t *Transport) updateWriteDeadline() {
	_ = t.conn.SetWriteDeadline(t.writeDeadline())
}

func (t *Transport) updateReadDeadline() {
	_ = t.conn.SetReadDeadline(t.clock.Now().Add(t.pongTimeout))
}

func closeFrame(reason domain.CloseReason) (int, string) {
	switch reason {
	case domain.ReasonShutdown:
		return websocket.CloseGoingAway, "server shutting down"
	case domain.ReasonRejected:
		return websocket.CloseTryAgainLater, "try again later"
	case domain.ReasonMailboxFull:
		return websocket.ClosePolicyViolation, "client too slow"
	case domain.ReasonWriteFailed, domain.ReasonPingFailed:
		return websocket.CloseInternalServerErr, "connection lost"
	default:
		return websocket.CloseNormalClosure, ""
	}
}
