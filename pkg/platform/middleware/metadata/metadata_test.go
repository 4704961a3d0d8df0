package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedlink/pkg/requestcontext"
)

const (
	firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googlebot    = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:4000", "203.0.113.7"},
		{"single forwarded", map[string]string{"X-Forwarded-For": " 203.0.113.8 "}, "10.0.0.2:4000", "203.0.113.8"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.2:4000", "198.51.100.3"},
		{"remote ipv4", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote ipv6", nil, "[::1]:5555", "::1"},
		{"no port", nil, "192.0.2.9", "192.0.2.9"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestParseAgent(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		a := ParseAgent(firefoxLinux)
		assert.Equal(t, "Firefox 120.0", a.Browser)
		assert.Contains(t, a.OS, "Linux")
		assert.False(t, a.Mobile)
		assert.False(t, a.Bot)
		assert.Contains(t, a.String(), "Firefox 120.0 on ")
	})

	t.Run("mobile browser", func(t *testing.T) {
		assert.True(t, ParseAgent(safariIPhone).Mobile)
	})

	t.Run("crawler", func(t *testing.T) {
		assert.True(t, ParseAgent(googlebot).Bot)
	})

	t.Run("blank header", func(t *testing.T) {
		a := ParseAgent("  ")
		assert.Equal(t, requestcontext.Agent{}, a)
		assert.Empty(t, a.String())
	})
}

func TestClientMetadataPopulatesContext(t *testing.T) {
	var (
		gotIP    string
		gotAgent requestcontext.Agent
	)
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotAgent = requestcontext.ClientAgent(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/donations/x/confirm", nil)
	r.RemoteAddr = "192.0.2.4:1234"
	r.Header.Set("User-Agent", googlebot)
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "192.0.2.4", gotIP)
	assert.True(t, gotAgent.Bot)
}
