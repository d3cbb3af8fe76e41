package middleware

import (
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/damoang/angple-bans/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AdminNetworks is the set of networks allowed to reach the admin API.
// An empty set allows every client.
type AdminNetworks struct {
	nets []*net.IPNet
}

// LoadAdminNetworks parses BANS_ADMIN_ALLOW_IPS.
// BANS_ADMIN_ALLOW_IPS=10.0.0.0/8,192.168.1.20
func LoadAdminNetworks() *AdminNetworks {
	return ParseAdminNetworks(os.Getenv("BANS_ADMIN_ALLOW_IPS"))
}

// ParseAdminNetworks accepts a comma separated list of CIDRs or bare IPs.
// Unparseable entries are logged and skipped.
func ParseAdminNetworks(list string) *AdminNetworks {
	an := &AdminNetworks{}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				logger.Warn("ignoring invalid admin network %q", entry)
				continue
			}
			if ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn("ignoring invalid admin network %q", entry)
			continue
		}
		an.nets = append(an.nets, ipNet)
	}
	return an
}

// Allows reports whether ip falls inside one of the configured networks.
func (a *AdminNetworks) Allows(ip string) bool {
	if a == nil || len(a.nets) == 0 {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range a.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// AdminAllowlist rejects admin requests from outside the configured networks.
func AdminAllowlist(networks *AdminNetworks) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !networks.Allows(c.ClientIP()) {
			logger.GetLogger().Warn().
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("admin request from disallowed network")
			common.V2ErrorResponse(c, http.StatusForbidden, "admin API is not reachable from this network", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
