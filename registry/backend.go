package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Role tells a backend which background task set to launch on Sync,
// matching lifecycle.run's per-entry-point wiring (§4.6): the API gateway
// only watches, a web service only renews, a backend service does both.
type Role int

const (
	RoleAPIGateway Role = iota
	RoleWebService
	RoleBackendService
)

// BackendType names a pluggable registry store, selected at process start
// by the REGISTER_TYPE environment variable.
type BackendType string

const (
	TypeMongoDB BackendType = "mongodb"
	TypeEtcd    BackendType = "etcd"
	TypeConsul  BackendType = "consul"
	TypeMDNS    BackendType = "mdns"
	TypeNone    BackendType = "none"
)

// ParseBackendType parses REGISTER_TYPE case-insensitively, defaulting to
// mongodb per spec §6.
func ParseBackendType(s string) BackendType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "etcd":
		return TypeEtcd
	case "consul":
		return TypeConsul
	case "mdns":
		return TypeMDNS
	case "none":
		return TypeNone
	case "mongodb", "":
		return TypeMongoDB
	default:
		return TypeMongoDB
	}
}

// Backend is the behavioral contract every registry plugin implements:
// Register/Unregister/List/GetBackendService are synchronous data
// capabilities; Watch and Renew are long-running synchronization
// capabilities spawned as background tasks (§4.2).
type Backend interface {
	// Register durably advertises entry until its lease expires or it is
	// explicitly unregistered.
	Register(ctx context.Context, entry ServiceEntry) error

	// Unregister removes an entry this process owns, best-effort.
	Unregister(ctx context.Context, id string) error

	// List returns every live entry under name, bypassing the cache.
	List(ctx context.Context, name string) ([]ServiceEntry, error)

	// GetBackendService returns this process's own id under name (empty if
	// not registered under it) and the sorted ids of every peer sharing
	// the name.
	GetBackendService(ctx context.Context, selfID, name string) (string, []string, error)

	// Watch subscribes to store changes and keeps cache coherent until ctx
	// is done. Implementations SHOULD re-list and resubscribe with backoff
	// if the underlying stream terminates abnormally (spec §9 open
	// question, resolved in favor of resilience).
	Watch(ctx context.Context, cache *CacheMap) error

	// Renew runs the periodic renewal loop for every entry in owned until
	// ctx is done, at which point it unregisters them all before
	// returning.
	Renew(ctx context.Context, owned *OwnedSet) error
}

// Config carries the environment-derived settings every backend
// constructor consumes (§6 "External interfaces").
type Config struct {
	// Addr is the backend connection URI (REGISTER_ADDR).
	Addr string

	// TimeToLive is the registration lease, in seconds. etcdbackend uses it
	// as its lease and renews at TimeToLive-1. mongobackend (2s renewal,
	// 2s TTL index) and consulbackend (10s renewal, 15s check TTL) use fixed
	// values and do not read it; mdnsbackend has no renewal.
	TimeToLive int64

	Logger *zap.Logger
}

// NewBackendFunc constructs a Backend from Config. Each backend
// sub-package registers its constructor here via an init() call, avoiding
// a hard import cycle between registry and its backend implementations.
type NewBackendFunc func(Config) (Backend, error)

var (
	registryMu sync.Mutex
	registry   = map[BackendType]NewBackendFunc{}
)

// RegisterBackend makes a backend constructor available to NewBackend
// under typ. Backend sub-packages call this from their init() function.
func RegisterBackend(typ BackendType, fn NewBackendFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typ] = fn
}

// NewBackend constructs the Backend named by typ using its registered
// constructor. Callers normally obtain typ via ParseBackendType(env).
func NewBackend(typ BackendType, cfg Config) (Backend, error) {
	registryMu.Lock()
	fn, ok := registry[typ]
	registryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("registry: no backend registered for type %q (forgot a blank import?)", typ)
	}

	return fn(cfg)
}

// Sync runs the background task set appropriate for role against backend,
// blocking until ctx is done. It is the Go-idiom collapse of the source's
// three handle functions (gateway_service_handle / web_service_handle /
// backend_service_handle) into one dispatch, since all three differ only
// in which of {Watch, Renew} they run.
func Sync(ctx context.Context, wg *sync.WaitGroup, b Backend, role Role, cache *CacheMap, owned *OwnedSet, logger *zap.Logger) {
	switch role {
	case RoleAPIGateway:
		wg.Add(1)
		go runTask(ctx, wg, logger, "watch", func() error { return b.Watch(ctx, cache) })
	case RoleWebService:
		wg.Add(1)
		go runTask(ctx, wg, logger, "renew", func() error { return b.Renew(ctx, owned) })
	case RoleBackendService:
		wg.Add(2)
		go runTask(ctx, wg, logger, "watch", func() error { return b.Watch(ctx, cache) })
		go runTask(ctx, wg, logger, "renew", func() error { return b.Renew(ctx, owned) })
	}
}

func runTask(ctx context.Context, wg *sync.WaitGroup, logger *zap.Logger, name string, fn func() error) {
	defer wg.Done()

	if err := fn(); err != nil && ctx.Err() == nil {
		if logger != nil {
			logger.Error("registry background task exited", zap.String("task", name), zap.Error(err))
		}
	}
}
