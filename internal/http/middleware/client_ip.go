package middleware

import (
	"net"
	"net/http"
)

// ClientIP returns the request's remote host. Behind chi's RealIP middleware this is already
// the forwarded client address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
