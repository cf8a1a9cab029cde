package isolation

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	id     string
	tenant string
	body   string
	tags   []string
}

func (n *note) EntityID() string     { return n.id }
func (n *note) EntityTenant() string { return n.tenant }
func (n *note) Clone() *note {
	c := *n
	c.tags = append([]string(nil), n.tags...)
	return &c
}

type fakeBackend struct {
	saved   map[string]*note
	deleted []string
	err     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{saved: make(map[string]*note)}
}

func (b *fakeBackend) Save(_ context.Context, n *note) error {
	if b.err != nil {
		return b.err
	}
	b.saved[n.id] = n.Clone()
	return nil
}

func (b *fakeBackend) Delete(_ context.Context, id string) error {
	if b.err != nil {
		return b.err
	}
	b.deleted = append(b.deleted, id)
	delete(b.saved, id)
	return nil
}

func put(t *testing.T, s *Store[*note], n *note) {
	t.Helper()
	_, err := s.Upsert(context.Background(), n.id, func(*note, bool) *note { return n })
	require.NoError(t, err)
}

func ids(items []*note) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.id)
	}
	sort.Strings(out)
	return out
}

func TestStore_SelectIsTenantScoped(t *testing.T) {
	s := New[*note](nil)
	put(t, s, &note{id: "1", tenant: "a"})
	put(t, s, &note{id: "2", tenant: "a"})
	put(t, s, &note{id: "3", tenant: "b"})

	assert.Equal(t, []string{"1", "2"}, ids(s.Select("a", nil)))
	assert.Equal(t, []string{"3"}, ids(s.Select("b", nil)))
	assert.Empty(t, s.Select("c", nil))
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.SelectAll(nil)))
	assert.Equal(t, 2, s.Count("a", nil))
	assert.Equal(t, 3, s.Len())
}

func TestStore_UpsertPassesExisting(t *testing.T) {
	s := New[*note](nil)
	put(t, s, &note{id: "1", tenant: "a", body: "first"})

	got, err := s.Upsert(context.Background(), "1", func(existing *note, found bool) *note {
		require.True(t, found)
		assert.Equal(t, "first", existing.body)
		return &note{id: "1", tenant: "a", body: existing.body + "+second"}
	})
	require.NoError(t, err)
	assert.Equal(t, "first+second", got.body)
}

func TestStore_UpsertMovingTenantReindexes(t *testing.T) {
	s := New[*note](nil)
	put(t, s, &note{id: "1", tenant: "a"})
	put(t, s, &note{id: "1", tenant: "b"})

	assert.Empty(t, s.Select("a", nil))
	assert.Equal(t, []string{"1"}, ids(s.Select("b", nil)))
	assert.Equal(t, 1, s.Len())
}

func TestStore_ReadersGetCopies(t *testing.T) {
	s := New[*note](nil)
	put(t, s, &note{id: "1", tenant: "a", tags: []string{"x"}})

	got, ok := s.Get("1")
	require.True(t, ok)
	got.body = "changed"
	got.tags[0] = "y"

	again, _ := s.Get("1")
	assert.Empty(t, again.body)
	assert.Equal(t, []string{"x"}, again.tags)
}

func TestStore_MutateAndAccess(t *testing.T) {
	backend := newFakeBackend()
	s := New[*note](backend)
	put(t, s, &note{id: "1", tenant: "a"})

	got, ok, err := s.Mutate(context.Background(), "1", func(n *note) { n.body = "edited" })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "edited", got.body)
	assert.Equal(t, "edited", backend.saved["1"].body)

	touched, ok := s.Access("1", func(n *note) { n.body = "touched" })
	require.True(t, ok)
	assert.Equal(t, "touched", touched.body)
	assert.Equal(t, "edited", backend.saved["1"].body, "Access must not persist")

	_, ok, err = s.Mutate(context.Background(), "missing", func(*note) {})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_BackendFailureLeavesMemoryUntouched(t *testing.T) {
	backend := newFakeBackend()
	s := New[*note](backend)
	put(t, s, &note{id: "1", tenant: "a", body: "kept"})

	backend.err = errors.New("disk full")
	ctx := context.Background()

	_, err := s.Upsert(ctx, "2", func(*note, bool) *note { return &note{id: "2", tenant: "a"} })
	require.ErrorIs(t, err, backend.err)
	_, ok := s.Get("2")
	assert.False(t, ok)

	_, _, err = s.Mutate(ctx, "1", func(n *note) { n.body = "lost" })
	require.ErrorIs(t, err, backend.err)
	got, _ := s.Get("1")
	assert.Equal(t, "kept", got.body)

	_, found, err := s.Delete(ctx, "1")
	require.ErrorIs(t, err, backend.err)
	assert.True(t, found)
	assert.Equal(t, 1, s.Count("a", nil))
}

func TestStore_DeleteWhere(t *testing.T) {
	backend := newFakeBackend()
	s := New[*note](backend)
	put(t, s, &note{id: "1", tenant: "a", body: "drop"})
	put(t, s, &note{id: "2", tenant: "a", body: "keep"})
	put(t, s, &note{id: "3", tenant: "b", body: "drop"})

	n, err := s.DeleteWhere(context.Background(), "a", func(x *note) bool { return x.body == "drop" })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"2"}, ids(s.Select("a", nil)))
	assert.Equal(t, []string{"3"}, ids(s.Select("b", nil)), "other tenants are not touched")
	assert.Equal(t, []string{"1"}, backend.deleted)
}

func TestStore_DeleteRemovesFromIndex(t *testing.T) {
	s := New[*note](nil)
	put(t, s, &note{id: "1", tenant: "a"})

	removed, ok, err := s.Delete(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", removed.id)
	assert.Equal(t, 0, s.Count("a", nil))

	_, ok, err = s.Delete(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	s := New[*note](backend)
	s.Load(&note{id: "1", tenant: "a"}, &note{id: "2", tenant: "b"})

	assert.Equal(t, 2, s.Len())
	assert.Empty(t, backend.saved)
}

func TestStore_ConcurrentUpsertAndSelect(t *testing.T) {
	s := New[*note](nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenant := "t" + strconv.Itoa(w%2)
			for i := 0; i < 100; i++ {
				i := i
				id := tenant + "-" + strconv.Itoa(w) + "-" + strconv.Itoa(i)
				_, err := s.Upsert(ctx, id, func(*note, bool) *note { return &note{id: id, tenant: tenant} })
				assert.NoError(t, err)
				for _, n := range s.Select(tenant, func(*note) bool { return true }) {
					assert.Equal(t, tenant, n.tenant)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, s.Count("t0", func(*note) bool { return true }))
	assert.Equal(t, 400, s.Count("t1", func(*note) bool { return true }))
	assert.Equal(t, 800, s.Len())
}
