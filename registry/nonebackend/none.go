// Package nonebackend implements registry.Backend as a no-op: every
// operation succeeds trivially and nothing is ever discoverable. It backs
// REGISTER_TYPE=none, used in tests and single-process deployments that
// have no mesh to join.
package nonebackend

import (
	"context"

	"github.com/source-build/go-crossgate/registry"
)

func init() {
	registry.RegisterBackend(registry.TypeNone, New)
}

type backend struct{}

// New constructs the no-op Backend. cfg is accepted for interface
// symmetry with the other backends but unused.
func New(registry.Config) (registry.Backend, error) {
	return backend{}, nil
}

func (backend) Register(context.Context, registry.ServiceEntry) error { return nil }

func (backend) Unregister(context.Context, string) error { return nil }

func (backend) List(context.Context, string) ([]registry.ServiceEntry, error) {
	return nil, nil
}

func (backend) GetBackendService(context.Context, string, string) (string, []string, error) {
	return "", nil, nil
}

// Watch blocks until ctx is done; there is no store to subscribe to.
func (backend) Watch(ctx context.Context, _ *registry.CacheMap) error {
	<-ctx.Done()
	return nil
}

// Renew blocks until ctx is done; there is nothing owned to renew.
func (backend) Renew(ctx context.Context, _ *registry.OwnedSet) error {
	<-ctx.Done()
	return nil
}
