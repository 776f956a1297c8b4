package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// =====================================================================
// IP del cliente
// =====================================================================
//
// X-Forwarded-For lo puede escribir cualquiera. Solo se lee cuando el peer
// inmediato (RemoteAddr) es un proxy confiable; en ese caso se recorre la
// lista de derecha a izquierda y se toma la primera IP que no sea otro proxy
// confiable. Sin proxies configurados la IP es siempre la del peer.

// TrustedProxies es la lista de redes desde las que se acepta X-Forwarded-For.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies acepta IPs sueltas ("10.0.0.1") o CIDRs ("10.0.0.0/8").
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	out := make(TrustedProxies, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid IP", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (tp TrustedProxies) trusts(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range tp {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resuelve la IP del cliente según la lista de proxies confiables.
func (tp TrustedProxies) ClientIP(r *http.Request) string {
	peer := peerIP(r)
	if len(tp) == 0 || !tp.trusts(net.ParseIP(peer)) {
		return peer
	}
	xf := r.Header.Values("X-Forwarded-For")
	if len(xf) == 0 {
		return peer
	}
	hops := strings.Split(strings.Join(xf, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		ip := net.ParseIP(hop)
		if ip == nil {
			// hop inválido: nos quedamos con el último hop confiable
			return peer
		}
		if !tp.trusts(ip) {
			return ip.String()
		}
		peer = ip.String()
	}
	return peer
}

// RateKey es IPPathRateKey pero resolviendo la IP con la lista de proxies.
func (tp TrustedProxies) RateKey(r *http.Request) string {
	return tp.ClientIP(r) + "|" + r.URL.Path
}

// peerIP es la IP del peer TCP inmediato.
func peerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// clientIP sin proxies confiables: siempre el peer.
func clientIP(r *http.Request) string { return peerIP(r) }
