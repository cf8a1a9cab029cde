package license

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

func newTestEngine() (*Engine, *clock.Mock) {
	e := NewEngine(nil)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	e.Clock = mock
	return e, mock
}

func TestGenerateKey(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+-[0-9A-F]{32}$`)

	key, err := GenerateKey("")
	require.NoError(t, err)
	assert.Regexp(t, `^ENT-`, key)
	assert.Regexp(t, pattern, key)

	other, err := GenerateKey("STA")
	require.NoError(t, err)
	assert.Regexp(t, `^STA-`, other)
	assert.NotEqual(t, key[4:], other[4:])
}

func TestKeyPrefix(t *testing.T) {
	tests := map[domain.LicenseType]string{
		domain.LicenseTrial:        "TRI",
		domain.LicenseStandard:     "STA",
		domain.LicenseProfessional: "PRO",
		domain.LicenseEnterprise:   "ENT",
	}
	for lt, want := range tests {
		assert.Equal(t, want, KeyPrefix(lt), lt)
	}
}

func TestEngine_CreateValidates(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{name: "missing tenant", params: CreateParams{Type: domain.LicenseTrial}, want: domain.ErrTenantRequired},
		{name: "unknown type", params: CreateParams{TenantID: "acme", Type: "gold"}, want: domain.ErrInvalidLicenseType},
		{name: "negative users", params: CreateParams{TenantID: "acme", Type: domain.LicenseTrial, MaxUsers: -1}, want: domain.ErrInvalidLimit},
		{name: "negative days", params: CreateParams{TenantID: "acme", Type: domain.LicenseTrial, Days: -5}, want: domain.ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Create(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, e.List())
}

func TestEngine_CreateDefaults(t *testing.T) {
	e, mock := newTestEngine()

	lic, key, err := e.Create(context.Background(), CreateParams{TenantID: "acme", Type: domain.LicenseProfessional})
	require.NoError(t, err)

	assert.Regexp(t, `^PRO-[0-9A-F]{32}$`, key)
	assert.Equal(t, domain.LicenseActive, lic.Status)
	assert.Equal(t, mock.Now().UTC(), lic.IssuedAt)
	assert.Equal(t, mock.Now().UTC().Add(365*24*time.Hour), lic.ExpiresAt)
	assert.NotNil(t, lic.Features)
}

// acme holds a 30-day standard license for 10 users and 100 conversations.
func TestEngine_ValidateUsageScenario(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	lic, _, err := e.Create(ctx, CreateParams{
		TenantID:         "acme",
		Type:             domain.LicenseStandard,
		MaxUsers:         10,
		MaxConversations: 100,
		Days:             30,
	})
	require.NoError(t, err)

	assert.True(t, e.ValidateUsage(lic.ID, 10, 100), "equality is within the ceiling")
	assert.False(t, e.ValidateUsage(lic.ID, 11, 100))
	assert.False(t, e.ValidateUsage(lic.ID, 10, 101))

	ok, err := e.Revoke(ctx, lic.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, e.ValidateUsage(lic.ID, 1, 1))
	assert.False(t, e.ValidateUsage("unknown", 0, 0))
}

func TestEngine_RevokeIsTerminal(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	lic, key, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseTrial, Days: 14})
	require.NoError(t, err)

	ok, err := e.Revoke(ctx, lic.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Revoke(ctx, lic.ID)
	require.NoError(t, err)
	assert.True(t, ok, "revoke is idempotent")

	got, found, err := e.Activate(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.LicenseRevoked, got.Status)

	_, err = e.Suspend(ctx, lic.ID)
	require.NoError(t, err)
	_, err = e.ExpireOverdue(ctx)
	require.NoError(t, err)

	got, _ = e.Get(lic.ID)
	assert.Equal(t, domain.LicenseRevoked, got.Status)
	assert.False(t, e.IsValid(lic.ID))

	ok, err = e.Revoke(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_ExpireAndActivate(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine()

	lic, key, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseTrial, Days: 1})
	require.NoError(t, err)
	assert.True(t, e.IsValid(lic.ID))

	mock.Add(48 * time.Hour)
	assert.False(t, e.IsValid(lic.ID))

	n, err := e.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := e.Get(lic.ID)
	assert.Equal(t, domain.LicenseExpired, got.Status)

	got, found, err := e.Activate(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.LicenseActive, got.Status)
	assert.Equal(t, lic.ExpiresAt, got.ExpiresAt, "activation does not renew")
	assert.False(t, e.IsValid(lic.ID))

	_, found, err = e.Activate(ctx, "ENT-NOPE")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEngine_ActivateDoesNotLiftSuspension(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	lic, key, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseEnterprise})
	require.NoError(t, err)

	ok, err := e.Suspend(ctx, lic.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, _, err := e.Activate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseSuspended, got.Status)
	_, found := e.GetByTenant("acme")
	assert.False(t, found)
}

func TestEngine_GetByTenantPrefersNewest(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine()

	older, _, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseStandard})
	require.NoError(t, err)
	mock.Add(time.Hour)
	newer, _, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseEnterprise})
	require.NoError(t, err)
	_, _, err = e.Create(ctx, CreateParams{TenantID: "globex", Type: domain.LicenseTrial})
	require.NoError(t, err)

	got, ok := e.GetByTenant("acme")
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)

	_, err = e.Revoke(ctx, newer.ID)
	require.NoError(t, err)
	got, ok = e.GetByTenant("acme")
	require.True(t, ok)
	assert.Equal(t, older.ID, got.ID)

	_, ok = e.GetByTenant("nobody")
	assert.False(t, ok)
	assert.Len(t, e.ListByTenant("acme"), 2)
	assert.Len(t, e.List(), 3)
}

func TestEngine_LoadRestoresKeys(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine()

	e.Load(&domain.License{
		ID:        "lic-1",
		TenantID:  "acme",
		Type:      domain.LicenseStandard,
		Status:    domain.LicenseExpired,
		IssuedAt:  mock.Now(),
		ExpiresAt: mock.Now().Add(24 * time.Hour),
		Key:       "STA-0123456789ABCDEF0123456789ABCDEF",
	})

	got, found, err := e.Activate(ctx, "STA-0123456789ABCDEF0123456789ABCDEF")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "lic-1", got.ID)
	assert.True(t, e.IsValid("lic-1"))
	assert.Equal(t, 1, e.DaysRemaining("lic-1"))
}

func TestEngine_ConcurrentRevokeAndValidate(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	lic, _, err := e.Create(ctx, CreateParams{TenantID: "acme", Type: domain.LicenseStandard, MaxUsers: 5, MaxConversations: 5, Days: 30})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				e.ValidateUsage(lic.ID, 1, 1)
				e.GetByTenant("acme")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.Revoke(ctx, lic.ID)
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.False(t, e.ValidateUsage(lic.ID, 1, 1))
	got, ok := e.Get(lic.ID)
	require.True(t, ok)
	assert.Equal(t, domain.LicenseRevoked, got.Status)
}
