package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/source-build/go-crossgate/gateway"
	"github.com/source-build/go-crossgate/proxy"
	"github.com/source-build/go-crossgate/registry"
)

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
	return selfID, nil, nil
}

func (f *fakeBackend) Watch(ctx context.Context, _ *registry.CacheMap) error {
	<-ctx.Done()
	return nil
}

func (f *fakeBackend) Renew(ctx context.Context, _ *registry.OwnedSet) error {
	<-ctx.Done()
	return nil
}

func newTestGateway(backend registry.Backend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	facade := registry.NewFacade(backend, 10)
	gw := gateway.New(facade, proxy.New(nil), nil, nil, nil)

	engine := gin.New()
	engine.NoRoute(gw.Handler())
	return engine
}

func TestGatewayRootServesLandingPage(t *testing.T) {
	engine := newTestGateway(newFakeBackend())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crossgate api gateway")
}

func TestGatewayShortPathReturns503(t *testing.T) {
	engine := newTestGateway(newFakeBackend())

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service unavailable or not found", w.Body.String())
}

func TestGatewayEmptyStrictHeaderReturns400(t *testing.T) {
	engine := newTestGateway(newFakeBackend())

	req := httptest.NewRequest(http.MethodGet, "/svc/x", nil)
	req.Header.Set("strict", "")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "strict address is empty", w.Body.String())
}

func TestGatewayUnknownServiceReturns503(t *testing.T) {
	engine := newTestGateway(newFakeBackend())

	req := httptest.NewRequest(http.MethodGet, "/svc/x", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "svc not found", w.Body.String())
}

func TestGatewayForwardsToResolvedUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/svc/ping", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	backend := newFakeBackend()
	backend.entries["1"] = registry.ServiceEntry{
		ID:      "1",
		Service: "svc",
		Lba:     "round_robin",
		Addr:    upstream.Listener.Addr().String(),
		Kind:    registry.WebService,
	}

	engine := newTestGateway(backend)

	req := httptest.NewRequest(http.MethodGet, "/svc/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestGatewayInterceptorNotAuthorizedShortCircuits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	facade := registry.NewFacade(newFakeBackend(), 10)

	denied := func(c *gin.Context) gateway.Verb {
		if c.GetHeader("token") == "bad" {
			return gateway.NotAuthorized
		}
		return gateway.Next
	}

	gw := gateway.New(facade, proxy.New(nil), []gateway.Interceptor{denied}, nil, nil)
	engine := gin.New()
	engine.NoRoute(gw.Handler())

	req := httptest.NewRequest(http.MethodGet, "/svc/x", nil)
	req.Header.Set("token", "bad")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())
}
