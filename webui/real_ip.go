package webui

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP replaces r.RemoteAddr with the forwarded client address when the
// connection comes from one of trusted. X-Forwarded-For is walked right to
// left and the first hop outside trusted wins; X-Real-IP is read only when
// X-Forwarded-For is absent. With no trusted proxies both headers are ignored.
func RealIP(trusted []netip.Prefix, next http.Handler) http.Handler {
	if len(trusted) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if peer, ok := parseIP(ClientIP(r)); ok && isTrusted(trusted, peer) {
			if client, found := forwardedClient(r, trusted); found {
				r.RemoteAddr = net.JoinHostPort(client.String(), "0")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		var nearest netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseIP(hops[i])
			if !ok {
				return netip.Addr{}, false
			}
			nearest = addr
			if !isTrusted(trusted, addr) {
				return addr, true
			}
		}
		// Every hop is a proxy; the leftmost one is the closest to a client.
		return nearest, nearest.IsValid()
	}
	return parseIP(r.Header.Get("X-Real-IP"))
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseIP(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
