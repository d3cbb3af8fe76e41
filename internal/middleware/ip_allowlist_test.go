package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseAdminNetworks(t *testing.T) {
	t.Run("empty list allows everyone", func(t *testing.T) {
		an := ParseAdminNetworks("")
		assert.True(t, an.Allows("203.0.113.9"))
	})

	t.Run("cidr and bare ip", func(t *testing.T) {
		an := ParseAdminNetworks(" 10.0.0.0/8 , 192.168.1.20 ")
		assert.True(t, an.Allows("10.20.30.40"))
		assert.True(t, an.Allows("192.168.1.20"))
		assert.False(t, an.Allows("192.168.1.21"))
		assert.False(t, an.Allows("not-an-ip"))
	})

	t.Run("invalid entries are skipped", func(t *testing.T) {
		an := ParseAdminNetworks("garbage,10.1.0.0/16,300.1.1.1")
		assert.Len(t, an.nets, 1)
		assert.True(t, an.Allows("10.1.2.3"))
	})

	t.Run("ipv6", func(t *testing.T) {
		an := ParseAdminNetworks("::1")
		assert.True(t, an.Allows("::1"))
		assert.False(t, an.Allows("127.0.0.1"))
	})

	t.Run("nil set", func(t *testing.T) {
		var an *AdminNetworks
		assert.True(t, an.Allows("127.0.0.1"))
	})
}

func TestAdminAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		list       string
		remoteAddr string
		wantStatus int
	}{
		{"allowed network", "10.0.0.0/8", "10.1.1.1:5000", http.StatusOK},
		{"disallowed network", "10.0.0.0/8", "172.16.0.1:5000", http.StatusForbidden},
		{"no restriction", "", "172.16.0.1:5000", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", AdminAllowlist(ParseAdminNetworks(tt.list)), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.RemoteAddr = tt.remoteAddr
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
