package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/taskpulse/internal/adapter/websocket"
	"github.com/pscheid92/taskpulse/internal/broadcast"
	"github.com/pscheid92/taskpulse/internal/domain"
	apperrors "github.com/pscheid92/taskpulse/internal/platform/errors"
)

// handleWebSocket upgrades the request, hands the transport to the connection
// manager and then reads client frames until the peer goes away. All writes
// happen on the connection's own writer goroutine.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "error", err)
		return nil
	}

	transport := websocket.NewTransport(conn, s.transportOpts)
	client, err := s.connections.Accept(c.Request().Context(), transport, broadcast.Meta{
		RemoteAddr: c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
	})
	if err != nil {
		slog.InfoContext(c.Request().Context(), "WebSocket handshake rejected", "remote_addr", c.RealIP(), "error", err)
		return nil
	}

	if err := transport.ReadLoop(func(text string) { s.handleInbound(client, text) }); err != nil {
		slog.Debug("WebSocket read ended", "conn_id", client.ID(), "error", err)
	}
	s.connections.Disconnect(client)
	return nil
}

func (s *Server) handleInbound(client *broadcast.Conn, text string) {
	cmd := websocket.ParseCommand(text)

	switch cmd.Kind {
	case websocket.CommandAddTask:
		if _, err := s.tasks.Create(cmd.Body); err != nil {
			message := "could not create task"
			if apperrors.IsValidation(err) {
				message = apperrors.AsStructuredError(err).Message
			}
			if err := client.Deliver(domain.ErrorEvent(message)); err != nil {
				slog.Debug("Could not deliver error to client", "conn_id", client.ID(), "error", err)
			}
		}
	default:
		s.events.Publish(domain.MessageEvent(cmd.Body))
	}
}
