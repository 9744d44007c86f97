package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/taskpulse/internal/platform/errors"
	"github.com/pscheid92/taskpulse/internal/platform/version"
)

const readinessProbeTimeout = 5 * time.Second

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

type livenessResponse struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime_seconds"`
	Connections int     `json:"connections"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, livenessResponse{
		Status:      "ok",
		Uptime:      s.clock.Since(s.startTime).Seconds(),
		Connections: s.connections.Count(),
	})
}

// handleReadiness runs every check, so one response names all failing
// dependencies. Failures go out through the error middleware as 503.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	var failures []error
	checks := make(map[string]string, len(s.healthChecks))
	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			checks[hc.Name] = err.Error()
			failures = append(failures, fmt.Errorf("%s: %w", hc.Name, err))
			continue
		}
		checks[hc.Name] = "ok"
	}

	if len(failures) > 0 {
		return apperrors.UnavailableError("not ready", errors.Join(failures...)).WithField("checks", checks)
	}

	resp := readinessResponse{Status: "ready"}
	if len(checks) > 0 {
		resp.Checks = checks
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write readiness response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
