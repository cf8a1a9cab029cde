package skills

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

func newTestRegistry() (*Registry, *clock.Mock) {
	r := NewRegistry(nil)
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	r.Clock = mock
	return r, mock
}

func mustRegister(t *testing.T, r *Registry, p RegisterParams) *domain.Skill {
	t.Helper()
	s, err := r.Register(context.Background(), p)
	require.NoError(t, err)
	return s
}

func names(skills []*domain.Skill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, s.TenantID+"/"+s.Name)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestRegistry_RegisterDefaults(t *testing.T) {
	r, _ := newTestRegistry()

	s := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather"})
	assert.Equal(t, domain.SkillID("t1", "weather"), s.ID)
	assert.Equal(t, domain.DefaultNamespace, s.Namespace)
	assert.Equal(t, domain.DefaultSkillVersion, s.Version)
	assert.True(t, s.IsActive)
	assert.False(t, s.IsPublic)
	assert.Equal(t, []string{}, s.Tags)

	_, err := r.Register(context.Background(), RegisterParams{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
	_, err = r.Register(context.Background(), RegisterParams{TenantID: "t1"})
	assert.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestRegistry_ReRegisterOverwritesInPlace(t *testing.T) {
	r, mock := newTestRegistry()

	first := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather", Description: "v1"})
	mock.Add(time.Minute)
	second := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather", Description: "v2", Version: "2.0.0"})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, ok := r.GetByName("t1", "weather", "")
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "v2", got.Description)
	assert.Equal(t, "2.0.0", got.Version)
	assert.Equal(t, 1, r.Count("t1", ListQuery{}))
}

func TestRegistry_GetByName(t *testing.T) {
	r, _ := newTestRegistry()
	mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather", Namespace: "tools"})

	_, ok := r.GetByName("t1", "weather", "tools")
	assert.True(t, ok)
	_, ok = r.GetByName("t1", "weather", "default")
	assert.False(t, ok, "namespace must match")
	_, ok = r.GetByName("t2", "weather", "tools")
	assert.False(t, ok, "other tenant")
}

func TestRegistry_UpdateAppliesProvidedFields(t *testing.T) {
	r, mock := newTestRegistry()
	ctx := context.Background()
	s := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather", Description: "d", Tags: []string{"a"}})

	mock.Add(time.Minute)
	ok, err := r.Update(ctx, s.ID, Patch{
		Description: ptr(""),
		Tags:        ptr([]string{}),
		IsActive:    ptr(false),
		Config:      ptr(map[string]any{"units": "metric"}),
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := r.Get(s.ID)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Tags)
	assert.False(t, got.IsActive)
	assert.Equal(t, "metric", got.Config["units"])
	assert.Equal(t, domain.DefaultSkillVersion, got.Version, "nil version is left alone")
	assert.True(t, got.UpdatedAt.After(s.UpdatedAt))

	ok, err = r.Update(ctx, "missing", Patch{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_ListIsolation(t *testing.T) {
	r, mock := newTestRegistry()

	mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather", Tags: []string{"util"}})
	mock.Add(time.Second)
	mustRegister(t, r, RegisterParams{TenantID: "t2", Name: "weather", IsPublic: true, Tags: []string{"util"}})
	mock.Add(time.Second)
	mustRegister(t, r, RegisterParams{TenantID: "t2", Name: "secret"})
	mock.Add(time.Second)
	mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "news", Namespace: "media"})

	assert.Equal(t, []string{"t1/news", "t1/weather"}, names(r.List("t1", ListQuery{})))
	assert.Equal(t, []string{"t1/news", "t2/weather", "t1/weather"}, names(r.List("t1", ListQuery{IncludePublic: true})))
	assert.Equal(t, []string{"t1/news"}, names(r.List("t1", ListQuery{Namespace: "media"})))
	assert.Equal(t, []string{"t1/weather"}, names(r.List("t1", ListQuery{Tags: []string{"util"}})))
	assert.Equal(t, []string{"t1/news"}, names(r.List("t1", ListQuery{Limit: 1})))
	assert.Equal(t, 3, r.Count("t1", ListQuery{IncludePublic: true}))
	assert.Equal(t, 2, r.Count("t2", ListQuery{}))

	for _, s := range r.List("t1", ListQuery{}) {
		assert.Equal(t, "t1", s.TenantID)
	}
}

func TestRegistry_Search(t *testing.T) {
	r, mock := newTestRegistry()
	ctx := context.Background()

	own := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "Forecast", Description: "weather report"})
	mock.Add(time.Second)
	mustRegister(t, r, RegisterParams{TenantID: "t2", Name: "weather-pub", IsPublic: true})
	mock.Add(time.Second)
	mustRegister(t, r, RegisterParams{TenantID: "t2", Name: "weather-private"})

	assert.Equal(t, []string{"t2/weather-pub", "t1/Forecast"}, names(r.Search("t1", SearchQuery{Query: "WEATHER"})))

	_, err := r.Update(ctx, own.ID, Patch{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2/weather-pub"}, names(r.Search("t1", SearchQuery{Query: "weather", ActiveOnly: true})))
}

func TestRegistry_CheckPermission(t *testing.T) {
	r, _ := newTestRegistry()
	open := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "open"})
	guarded := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "guarded", RequiredPermissions: []string{"admin", "ops"}})

	assert.True(t, r.CheckPermission(open.ID, nil))
	assert.True(t, r.CheckPermission(guarded.ID, []string{"ops"}))
	assert.False(t, r.CheckPermission(guarded.ID, []string{"read"}))
	assert.False(t, r.CheckPermission("missing", []string{"admin"}))
}

func TestRegistry_Delete(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	s := mustRegister(t, r, RegisterParams{TenantID: "t1", Name: "weather"})

	ok, err := r.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, found := r.GetByName("t1", "weather", "")
	assert.False(t, found)
}
