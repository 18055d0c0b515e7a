package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP sets r.RemoteAddr to the forwarded client address, but only when the
// connection comes from one of the trusted proxies. X-Forwarded-For is read
// right to left and the first hop outside the trusted set wins; X-Real-IP is
// used when X-Forwarded-For is absent. Requests from any other peer are left
// alone, so their forwarding headers have no effect.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedClient(r, trusted); ok {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (string, bool) {
	peer, err := parseAddr(clientIP(r))
	if err != nil || !isTrusted(peer, trusted) {
		return "", false
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var last netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := parseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			last = addr
			if !isTrusted(addr, trusted) {
				return addr.String(), true
			}
		}
		if last.IsValid() {
			return last.String(), true
		}
		return "", false
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := parseAddr(xri); err == nil {
			return addr.String(), true
		}
	}
	return "", false
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.Unmap(), nil
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP is the host part of r.RemoteAddr. Forwarding headers are only
// reflected here after RealIP has rewritten RemoteAddr for a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
