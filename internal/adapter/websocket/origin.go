package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin returns the CheckOrigin function for the WebSocket upgrader.
// Accepted: requests without an Origin header (non-browser clients), origins
// whose host matches the request host, and the origin of appURL.
// In development, localhost origins are accepted too.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			slog.Warn("WebSocket origin malformed", "origin", origin, "remote_addr", r.RemoteAddr)
			return false
		}

		switch {
		case strings.EqualFold(u.Host, r.Host):
			return true
		case appOrigin != "" && origin == appOrigin:
			return true
		case isDevelopment && isLocalhost(u.Hostname()):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
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

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
