package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	fit "github.com/source-build/go-crossgate"
	"github.com/source-build/go-crossgate/lifecycle"
	"github.com/source-build/go-crossgate/proxy"
	"github.com/source-build/go-crossgate/registry"
)

// requestID is a log-correlation header: every request gets a tag an
// operator can grep across the structured logs emitted for it, the way
// the teacher's fit.Random backs short opaque identifiers elsewhere in
// the pack.
func requestID() gin.HandlerFunc {
	rnd := fit.NewRandom()
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = rnd.PureDigital(12)
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// Run implements §4.6's run(addr, interceptors, self_handler): initialize
// the configured registry backend, launch its watch-only background task
// (RoleAPIGateway never registers or renews anything of its own), then
// race an http.Server bound to addr against SIGINT/SIGTERM.
func Run(ctx context.Context, cfg registry.Config, addr string, interceptors []Interceptor, selfHandle SelfHandleFunc, logger *zap.Logger) error {
	facade, backend, err := lifecycle.Init(cfg)
	if err != nil {
		return err
	}

	barrier := lifecycle.NewBarrier(ctx)

	registry.Sync(barrier.Context(), barrier.WaitGroup(), backend, registry.RoleAPIGateway, facade.Cache(), facade.Owned(), logger)

	gw := New(facade, proxy.New(nil), interceptors, selfHandle, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID())
	engine.NoRoute(gw.Handler())

	srv := &http.Server{Addr: addr, Handler: engine}

	err = lifecycle.Run(barrier.Context(), barrier, func(serveCtx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case <-serveCtx.Done():
			return srv.Shutdown(context.Background())
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	}, logger)

	barrier.Wait()

	return err
}
