package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"intake/pkg/requestcontext"
)

func observe(req *http.Request) (ip, ua string) {
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return ip, ua
}

func TestClientIP(t *testing.T) {
	t.Run("remote addr fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.2.3:51234"
		ip, _ := observe(req)
		assert.Equal(t, "10.1.2.3", ip)
	})

	t.Run("forwarded header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		ip, _ := observe(req)
		assert.Equal(t, "203.0.113.9", ip)
	})
}

func TestUserAgentSummary(t *testing.T) {
	t.Run("browser UA is compacted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		_, ua := observe(req)
		assert.Contains(t, ua, "Chrome/120")
		assert.Contains(t, ua, "Windows")
	})

	t.Run("unrecognized UA passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", "intake-probe/1.0")
		_, ua := observe(req)
		assert.NotEmpty(t, ua)
	})

	t.Run("missing UA stays empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, ua := observe(req)
		assert.Empty(t, ua)
	})
}
