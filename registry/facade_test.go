package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/source-build/go-crossgate/lba"
	"github.com/source-build/go-crossgate/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory registry.Backend used to exercise Facade
// without a real store, the way the source's tests stub Plugin.
type fakeBackend struct {
	mu      sync.Mutex
	entries map[string]registry.ServiceEntry
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{entries: make(map[string]registry.ServiceEntry)}
}

func (f *fakeBackend) Register(_ context.Context, entry registry.ServiceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeBackend) Unregister(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeBackend) List(_ context.Context, name string) ([]registry.ServiceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []registry.ServiceEntry
	for _, e := range f.entries {
		if e.Service == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetBackendService(_ context.Context, selfID, name string) (string, []string, error) {
	entries, _ := f.List(context.Background(), name)
	return selfID, registry.SortedIDs(entries), nil
}

func (f *fakeBackend) Watch(ctx context.Context, _ *registry.CacheMap) error {
	<-ctx.Done()
	return nil
}

func (f *fakeBackend) Renew(ctx context.Context, _ *registry.OwnedSet) error {
	<-ctx.Done()
	return nil
}

func TestFacadeGetWebServiceNotFound(t *testing.T) {
	f := registry.NewFacade(newFakeBackend(), 10)

	_, _, err := f.GetWebService(context.Background(), "missing")
	assert.ErrorIs(t, err, registry.ErrServiceNotFound)
}

func TestFacadeRegisterThenGetBackendService(t *testing.T) {
	f := registry.NewFacade(newFakeBackend(), 10)

	err := f.RegisterBackendService(context.Background(), registry.ExecutorSpec{Group: "workers"})
	require.NoError(t, err)

	selfID, peers, err := f.GetBackendService(context.Background(), "workers")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, selfID, peers[0])
}

func TestFacadeGetWebServiceByAlgorithmFiltersStrictByAddr(t *testing.T) {
	backend := newFakeBackend()
	f := registry.NewFacade(backend, 10)

	backend.entries["a"] = registry.ServiceEntry{ID: "a", Service: "svc", Lba: "strict", Addr: "10.0.0.1:80", Kind: registry.WebService}
	backend.entries["b"] = registry.ServiceEntry{ID: "b", Service: "svc", Lba: "strict", Addr: "10.0.0.2:80", Kind: registry.WebService}

	_, ep, err := f.GetWebServiceByAlgorithm(context.Background(), "svc", lba.Strict, "10.0.0.2:80")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2:80"}, ep.Addresses)
}

func TestCacheMapUpsertAndDeleteByID(t *testing.T) {
	cache := registry.NewCacheMap()
	cache.Upsert(registry.ServiceEntry{ID: "1", Service: "svc", Addr: "10.0.0.1:80"})
	cache.Upsert(registry.ServiceEntry{ID: "1", Service: "svc", Addr: "10.0.0.1:81"})

	entries, ok := cache.Get("svc")
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1:81", entries[0].Addr)

	cache.Delete("1")
	entries, ok = cache.Get("svc")
	require.True(t, ok)
	assert.Empty(t, entries)
}
