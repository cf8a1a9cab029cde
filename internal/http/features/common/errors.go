// Package common holds helpers shared by the feature handlers.
package common

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

var badRequest = []error{
	domain.ErrTenantRequired,
	domain.ErrIDRequired,
	domain.ErrNameRequired,
	domain.ErrContentRequired,
	domain.ErrInvalidEmail,
	domain.ErrInvalidLicenseType,
	domain.ErrInvalidLimit,
	domain.ErrInvalidMemoryType,
	domain.ErrInvalidRole,
	domain.ErrInvalidStatus,
}

// WriteError maps a component error to a response. Validation errors are
// 400, conflicts 409, missing tenants 404. Anything else is logged and
// answered with 500.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			httputil.Error(w, http.StatusBadRequest, target.Error())
			return
		}
	}
	switch {
	case errors.Is(err, domain.ErrTenantMismatch), errors.Is(err, domain.ErrSessionClosed):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTenantNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// Owned reports whether an entity fetched by id belongs to tenantID.
// Entities of other tenants are answered as missing.
func Owned(found bool, entityTenant, tenantID string) bool {
	return found && entityTenant == tenantID
}

// SplitList parses a comma-separated query parameter, dropping blanks.
func SplitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
