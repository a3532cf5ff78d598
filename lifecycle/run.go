package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/source-build/go-crossgate/registry"
	"go.uber.org/zap"
)

// Executor is a long-running backend-service task that joins a peer group
// and keeps running until ctx is done, given a live Facade handle for
// issuing lookups (the source's task/mod.rs Executor trait).
type Executor interface {
	Group() string
	Start(ctx context.Context, facade *registry.Facade) error
}

// Init constructs the Backend named by REGISTER_TYPE/REGISTER_ADDR and
// wraps it in a Facade, matching run()'s plugin::init_plugin call.
func Init(cfg registry.Config) (*registry.Facade, registry.Backend, error) {
	typ := registry.ParseBackendType(os.Getenv("REGISTER_TYPE"))
	backend, err := registry.NewBackend(typ, cfg)
	if err != nil {
		return nil, nil, err
	}

	return registry.NewFacade(backend, cfg.TimeToLive), backend, nil
}

// BackendServiceRun implements backend_service_run: register the executor
// under its own group with kind=BackendService, launch the renew+watch
// background task set, then run the executor until it returns or SIGINT
// arrives — whichever first, mirroring the source's tokio::select!.
func BackendServiceRun(ctx context.Context, cfg registry.Config, e Executor, logger *zap.Logger) error {
	facade, backend, err := Init(cfg)
	if err != nil {
		return err
	}

	barrier := NewBarrier(ctx)

	if err := facade.RegisterBackendService(barrier.Context(), registry.ExecutorSpec{Group: e.Group()}); err != nil {
		return err
	}

	registry.Sync(barrier.Context(), barrier.WaitGroup(), backend, registry.RoleBackendService, facade.Cache(), facade.Owned(), logger)

	if logger != nil {
		logger.Info("backend service start", zap.String("group", e.Group()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- e.Start(barrier.Context(), facade) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-sigCh:
	}

	barrier.Cancel()
	barrier.Wait()

	return runErr
}

// ServerRunFunc runs a bound server until ctx is done.
type ServerRunFunc func(ctx context.Context, addr string) error

// WebServiceRun implements web_service_run: register spec as a web service
// (its advertised address is derived from spec.Port, or STRICT), launch the
// renew-only background task set, then race srf(addr) against SIGINT.
func WebServiceRun(ctx context.Context, cfg registry.Config, spec registry.WebServiceSpec, srf ServerRunFunc, addr string, logger *zap.Logger) error {
	facade, backend, err := Init(cfg)
	if err != nil {
		return err
	}

	barrier := NewBarrier(ctx)

	if err := facade.RegisterWebService(barrier.Context(), spec); err != nil {
		return err
	}

	registry.Sync(barrier.Context(), barrier.WaitGroup(), backend, registry.RoleWebService, facade.Cache(), facade.Owned(), logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- srf(barrier.Context(), addr) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-sigCh:
	}

	barrier.Cancel()
	barrier.Wait()

	return runErr
}
