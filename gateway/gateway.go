// Package gateway implements the API gateway request handler (§4.5): an
// interceptor chain in front of service-name extraction, cache-first
// registry lookup, load-balanced address selection, and a reverse-proxy
// forward — collapsing the source's free function handle() plus its
// InterceptType enum into a Gateway value wired over gin.
package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/source-build/go-crossgate/lba"
	"github.com/source-build/go-crossgate/proxy"
	"github.com/source-build/go-crossgate/registry"
)

// Verb is an interceptor's verdict on a single request, matching §4.5
// step 1's six outcomes. SelfHandle/Redirect/NotAuthorized/Next mirror the
// source's InterceptType one-for-one; Forbidden and Interrupt are this
// port's addition.
type Verb int

const (
	// Next continues to the next interceptor (default zero value keeps an
	// empty-bodied interceptor harmless).
	Next Verb = iota

	// SelfHandle terminates the chain; the gateway's own serve function
	// answers the request instead of forwarding.
	SelfHandle

	// Redirect breaks out of interceptor evaluation and continues with
	// default routing (service extraction onward).
	Redirect

	// NotAuthorized terminates the chain with a 401.
	NotAuthorized

	// Forbidden terminates the chain with a 403.
	Forbidden

	// Interrupt terminates the chain; the interceptor is expected to have
	// written its own response to the gin context before returning this.
	Interrupt
)

// Interceptor inspects (and may answer) an in-flight request before
// routing, matching §4.5 step 1's (request, working_response) contract.
// When it returns Interrupt, it must have already written to c.
type Interceptor func(c *gin.Context) Verb

// SelfHandleFunc answers a request that an interceptor routed to
// SelfHandle, or the "/" root path.
type SelfHandleFunc func(c *gin.Context)

// LandingPageHTML is the built-in root response, carried over from the
// source's api::mod TITLE constant.
const LandingPageHTML = `
<html>
<head>
<style type=text/css>
</style>
</head>
<body>
<p> this page is crossgate api gateway.</p>
<br><br>
</body>
</html>
`

func defaultSelfHandle(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(LandingPageHTML))
}

// Gateway holds everything the request handler needs per call: the
// registry facade to resolve service names, the reverse proxy to forward
// through, the interceptor chain, and the self-handle responder.
type Gateway struct {
	Facade       *registry.Facade
	Proxy        *proxy.ReverseProxy
	Interceptors []Interceptor
	SelfHandle   SelfHandleFunc
	Logger       *zap.Logger
}

// New constructs a Gateway. A nil selfHandle falls back to the landing
// page responder.
func New(facade *registry.Facade, rp *proxy.ReverseProxy, interceptors []Interceptor, selfHandle SelfHandleFunc, logger *zap.Logger) *Gateway {
	if selfHandle == nil {
		selfHandle = defaultSelfHandle
	}
	return &Gateway{
		Facade:       facade,
		Proxy:        rp,
		Interceptors: interceptors,
		SelfHandle:   selfHandle,
		Logger:       logger,
	}
}

// Handler is the gin.HandlerFunc implementing §4.5's per-request
// algorithm end to end.
func (g *Gateway) Handler() gin.HandlerFunc {
	// One round-robin balancer serves every request through this handler,
	// so its counter advances across requests instead of restarting.
	roundRobin := lba.NewRoundRobin()

	return func(c *gin.Context) {
		for _, intercept := range g.Interceptors {
			switch intercept(c) {
			case SelfHandle:
				g.SelfHandle(c)
				return
			case Redirect:
				goto routing
			case NotAuthorized:
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			case Forbidden:
				c.AbortWithStatus(http.StatusForbidden)
				return
			case Interrupt:
				c.Abort()
				return
			case Next:
				continue
			}
		}

	routing:
		if c.Request.URL.Path == "/" {
			g.SelfHandle(c)
			return
		}

		name := serviceName(c.Request.URL.Path)
		if name == "" {
			c.String(http.StatusServiceUnavailable, "service unavailable or not found")
			return
		}

		var (
			tag        lba.Tag
			endpoint   registry.Endpoint
			err        error
			strictAddr string
		)

		if hasStrictHeader(c) {
			strictAddr = c.GetHeader("strict")
			if strictAddr == "" {
				c.String(http.StatusBadRequest, "strict address is empty")
				return
			}
			tag, endpoint, err = g.Facade.GetWebServiceByAlgorithm(c.Request.Context(), name, lba.Strict, strictAddr)
		} else {
			tag, endpoint, err = g.Facade.GetWebService(c.Request.Context(), name)
		}

		if errors.Is(err, registry.ErrServiceNotFound) {
			c.String(http.StatusServiceUnavailable, name+" not found")
			return
		}
		if err != nil {
			if g.Logger != nil {
				g.Logger.Error("service lookup failed", zap.String("service", name), zap.Error(err))
			}
			c.Status(http.StatusInternalServerError)
			return
		}

		if len(endpoint.Addresses) == 0 {
			c.String(http.StatusServiceUnavailable, name+" not found")
			return
		}

		balancer := lba.New(tag, strictAddr)
		if tag == lba.RoundRobin {
			balancer = roundRobin
		}
		addr, err := balancer.Select(endpoint.Addresses)
		if err != nil {
			c.String(http.StatusServiceUnavailable, name+" not found")
			return
		}

		forwardURL := "http://" + addr

		if err := g.Proxy.Call(c.Writer, c.Request, c.ClientIP(), forwardURL); err != nil {
			c.String(http.StatusInternalServerError, "gateway error: "+err.Error())
			return
		}
	}
}

// hasStrictHeader reports whether the "strict" header is present at all
// (as opposed to present-but-empty, step 4's 400 case).
func hasStrictHeader(c *gin.Context) bool {
	_, ok := c.Request.Header["Strict"]
	return ok
}

// serviceName extracts the logical service name as the first path segment
// (§4.5 step 3, matching the source's path().split("/").nth(1)). A second
// segment must exist — it addresses a resource under the service and is
// forwarded as part of the request, never folded into the lookup key — but
// only the first is returned. Fewer than two non-empty segments yields "".
func serviceName(path string) string {
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")

	n := 0
	var first string
	for _, s := range segments {
		if s == "" {
			continue
		}
		if n == 0 {
			first = s
		}
		n++
		if n == 2 {
			break
		}
	}
	if n < 2 {
		return ""
	}

	return first
}
