package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
)

// NewCheckOrigin decides which pages may open /ws. The task board served from
// APP_URL may connect, and so may clients that send no Origin header (scripts,
// CLI tools). Outside production the board is often served from a different
// localhost port, so any loopback origin is accepted too. A rejected origin gets
// a 403 before a connection is ever created.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == appOrigin {
			return true
		}
		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("Task board origin rejected", "origin", origin, "app_origin", appOrigin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
