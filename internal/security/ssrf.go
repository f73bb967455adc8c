// Package security implements zero-trust network guards for nodes that make
// outbound calls (§4.2's HTTP node, §6's plugin index fetch). Every network
// access is denied by default; the engine Config explicitly opts features
// back in (§5).
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/flowkit/engine/internal/config"
)

// SSRFGuard validates outbound URLs against a Config's network policy before
// any request is made, grounded on the teacher's pkg/security/ssrf.go.
type SSRFGuard struct {
	cfg            *config.Config
	allowedDomains map[string]bool
}

// NewSSRFGuard builds a guard from the engine config.
func NewSSRFGuard(cfg *config.Config) *SSRFGuard {
	allowed := make(map[string]bool, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		allowed[strings.ToLower(d)] = true
	}
	return &SSRFGuard{cfg: cfg, allowedDomains: allowed}
}

// ValidateURL rejects a URL the config's zero-trust policy disallows.
func (g *SSRFGuard) ValidateURL(raw string) error {
	if !g.cfg.AllowHTTP {
		return fmt.Errorf("outbound HTTP is disabled (config.AllowHTTP=false)")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme not allowed: %s", u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL missing hostname")
	}

	if len(g.allowedDomains) > 0 && !g.allowedDomains[strings.ToLower(hostname)] {
		return fmt.Errorf("domain not in allowlist: %s", hostname)
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return g.validateIP(ip)
	}

	if !g.cfg.AllowLocalhost && hostname == "localhost" {
		return fmt.Errorf("localhost addresses are blocked")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Unresolvable hostname: nothing more to check.
		return nil
	}
	for _, ip := range ips {
		if err := g.validateIP(ip); err != nil {
			return fmt.Errorf("resolved IP %s for %s: %w", ip, hostname, err)
		}
	}
	return nil
}

func (g *SSRFGuard) validateIP(ip net.IP) error {
	if !g.cfg.AllowLocalhost && isLoopbackOrUnspecified(ip) {
		return fmt.Errorf("localhost addresses are blocked")
	}
	if !g.cfg.AllowPrivateIPs && isPrivateIP(ip) {
		return fmt.Errorf("private IP addresses are blocked")
	}
	if !g.cfg.AllowLinkLocal && isLinkLocal(ip) {
		return fmt.Errorf("link-local addresses are blocked")
	}
	if !g.cfg.AllowCloudMetadata && isCloudMetadata(ip) {
		return fmt.Errorf("cloud metadata endpoints are blocked")
	}
	return nil
}

func isLoopbackOrUnspecified(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		return ipv4[0] == 0 && ipv4[1] == 0 && ipv4[2] == 0 && ipv4[3] == 0
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	if ipv4 := ip.To4(); ipv4 != nil {
		if ipv4[0] == 10 {
			return true
		}
		if ipv4[0] == 172 && ipv4[1] >= 16 && ipv4[1] <= 31 {
			return true
		}
		if ipv4[0] == 192 && ipv4[1] == 168 {
			return true
		}
		return false
	}
	return len(ip) == 16 && (ip[0]&0xfe) == 0xfc
}

func isLinkLocal(ip net.IP) bool {
	if ipv4 := ip.To4(); ipv4 != nil {
		return ipv4[0] == 169 && ipv4[1] == 254
	}
	return ip.IsLinkLocalUnicast()
}

func isCloudMetadata(ip net.IP) bool {
	if ipv4 := ip.To4(); ipv4 != nil {
		return ipv4[0] == 169 && ipv4[1] == 254 && ipv4[2] == 169 && ipv4[3] == 254
	}
	if len(ip) != 16 {
		return false
	}
	if ip[0] != 0xfd || ip[1] != 0x00 || ip[2] != 0x0e || ip[3] != 0xc2 {
		return false
	}
	for i := 4; i < 14; i++ {
		if ip[i] != 0 {
			return false
		}
	}
	return ip[14] == 0x02 && ip[15] == 0x54
}
