package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/internal/metrics"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

// LicenseLookup finds the valid license of a tenant.
type LicenseLookup interface {
	GetByTenant(tenantID string) (*domain.License, bool)
}

// RequireLicense rejects tenants without a valid license with 403 and stores
// the license in the context. denials may be nil. Must run after Identify.
func RequireLicense(licenses LicenseLookup, denials *prometheus.CounterVec, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := GetTenantID(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			license, ok := licenses.GetByTenant(tenantID)
			if !ok {
				if denials != nil {
					denials.WithLabelValues(metrics.ReasonNoLicense).Inc()
				}
				if logger != nil {
					logger.Info("request without valid license", "tenant_id", tenantID, "path", r.URL.Path)
				}
				httputil.Error(w, http.StatusForbidden, "no valid license")
				return
			}

			ctx := context.WithValue(r.Context(), LicenseKey, license)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
