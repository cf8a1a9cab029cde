package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/tendant/simple-tenancy/internal/config"
)

func TestSecurityHeaders(t *testing.T) {
	full := config.SecurityHeadersConfig{
		Enabled:            true,
		CSP:                "default-src 'none'",
		HSTSMaxAge:         31536000,
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "0",
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "geolocation=()",
	}
	disabled := full
	disabled.Enabled = false

	tests := []struct {
		name string
		cfg  config.SecurityHeadersConfig
		want map[string]string
	}{
		{
			name: "all headers",
			cfg:  full,
			want: map[string]string{
				"Content-Security-Policy":   "default-src 'none'",
				"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
				"X-XSS-Protection":          "0",
				"Referrer-Policy":           "no-referrer",
				"Permissions-Policy":        "geolocation=()",
			},
		},
		{
			name: "disabled",
			cfg:  disabled,
			want: map[string]string{
				"Content-Security-Policy": "",
				"X-Frame-Options":         "",
			},
		},
		{
			name: "empty values are skipped",
			cfg:  config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"},
			want: map[string]string{
				"X-Content-Type-Options":    "nosniff",
				"Content-Security-Policy":   "",
				"Strict-Transport-Security": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SecurityHeaders(tt.cfg)(okHandler())
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

			for name, want := range tt.want {
				if got := w.Header().Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}
