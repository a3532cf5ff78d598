package registry

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	fit "github.com/source-build/go-crossgate"
	"github.com/source-build/go-crossgate/lba"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// WebServiceSpec describes a process's request to advertise itself as one
// or more web services (§4.3 register_web_service).
type WebServiceSpec struct {
	// Name is a comma-separated list of logical service names this
	// process serves.
	Name string

	// Port is the local port the process listens on; combined with the
	// derived outbound IP (or the STRICT override) to form the advertised
	// address.
	Port string

	// Lba is the load-balancer tag this process advertises itself under.
	// Empty defaults to lba.FromEnvironment()'s resolution.
	Lba lba.Tag

	// StrictAddr pins this entry's address when Lba is lba.Strict.
	StrictAddr string
}

// ExecutorSpec describes a backend-service registration (§4.3
// register_backend_service): no address, joining a peer group by name.
type ExecutorSpec struct {
	// Group is the logical peer-group name (exec.group() in the source).
	Group string
}

// Facade is the role-aware wrapper the gateway and registering services
// call through. It composes address derivation, multi-name registration,
// and cache-first result shaping over a single Backend instance.
type Facade struct {
	backend Backend
	cache   *CacheMap
	owned   *OwnedSet
	ttl     int64

	sf     singleflight.Group
	single *fit.Single
}

// NewFacade wraps backend with a fresh CacheMap and OwnedSet. ttl is the
// lease duration in seconds; the Facade stores it but does not read it —
// the backend itself owns the actual lease RPCs.
func NewFacade(backend Backend, ttl int64) *Facade {
	return &Facade{
		backend: backend,
		cache:   NewCacheMap(),
		owned:   NewOwnedSet(),
		ttl:     ttl,
		single:  fit.NewSingle(),
	}
}

// Cache exposes the underlying CacheMap, e.g. for wiring into Sync.
func (f *Facade) Cache() *CacheMap { return f.cache }

// Owned exposes the underlying OwnedSet, e.g. for wiring into Sync.
func (f *Facade) Owned() *OwnedSet { return f.owned }

// RegisterWebService implements §4.3's register_web_service: derive the
// advertised address, split the comma-separated name list, and register a
// kind=WebService entry per name. Any per-name failure fails the whole
// call with ErrRegistrationFailed — the source does not attempt to roll
// back names already registered, and neither does this port.
func (f *Facade) RegisterWebService(ctx context.Context, spec WebServiceSpec) error {
	addr, err := advertisedAddr(spec.Port)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	tag := spec.Lba
	if tag == "" {
		tag, spec.StrictAddr = lba.FromEnvironment()
	}
	if tag == lba.Strict && spec.StrictAddr != "" {
		addr = spec.StrictAddr
	}

	names := splitNames(spec.Name)
	if len(names) == 0 {
		return fmt.Errorf("%w: empty service name", ErrRegistrationFailed)
	}

	for _, name := range names {
		entry := ServiceEntry{
			ID:      uuid.NewString(),
			Service: name,
			Lba:     string(tag),
			Addr:    addr,
			Kind:    WebService,
		}

		if err := f.backend.Register(ctx, entry); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRegistrationFailed, name, err)
		}

		f.owned.Put(entry)
	}

	return nil
}

// RegisterBackendService implements register_backend_service: a single
// addressless entry joining exec.group()'s peer set.
func (f *Facade) RegisterBackendService(ctx context.Context, spec ExecutorSpec) error {
	entry := ServiceEntry{
		ID:      uuid.NewString(),
		Service: spec.Group,
		Kind:    BackendService,
	}

	if err := f.backend.Register(ctx, entry); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRegistrationFailed, spec.Group, err)
	}

	f.owned.Put(entry)
	return nil
}

// GetWebService implements get_web_service: cache-first lookup, falling
// back to a backend List on miss (deduplicated across concurrent callers
// via singleflight), then deriving the effective LBA from the first
// entry's tag.
func (f *Facade) GetWebService(ctx context.Context, name string) (lba.Tag, Endpoint, error) {
	entries, err := f.list(ctx, name)
	if err != nil {
		return "", Endpoint{}, err
	}

	if len(entries) == 0 {
		return "", Endpoint{}, ErrServiceNotFound
	}

	return lba.ParseTag(entries[0].Lba), endpointOf(entries), nil
}

// GetWebServiceByAlgorithm implements get_web_service_by_algorithm: filter
// cached/listed entries by LBA tag equality, and for Strict additionally
// require the entry's own address to equal the pinned address (the
// "strict" HTTP header path in §4.5 step 4).
func (f *Facade) GetWebServiceByAlgorithm(ctx context.Context, name string, tag lba.Tag, strictAddr string) (lba.Tag, Endpoint, error) {
	entries, err := f.list(ctx, name)
	if err != nil {
		return "", Endpoint{}, err
	}

	filtered := make([]ServiceEntry, 0, len(entries))
	for _, e := range entries {
		if lba.ParseTag(e.Lba) != tag {
			continue
		}
		if tag == lba.Strict && e.Addr != strictAddr {
			continue
		}
		filtered = append(filtered, e)
	}

	return tag, endpointOf(filtered), nil
}

// GetServiceByLba is the first-class operation the original prototype
// exposes distinct from the strict-header path (Register.get_service_by_lba):
// same filtering as GetWebServiceByAlgorithm, without requiring a pinned
// address (tag must not be Strict).
func (f *Facade) GetServiceByLba(ctx context.Context, name string, tag lba.Tag) (Endpoint, error) {
	_, ep, err := f.GetWebServiceByAlgorithm(ctx, name, tag, "")
	return ep, err
}

// GetBackendService implements get_backend_service: delegate to the
// backend for this process's own id under name plus the sorted peer id
// list.
func (f *Facade) GetBackendService(ctx context.Context, name string) (string, []string, error) {
	selfID := ""
	for _, e := range f.owned.All() {
		if e.Service == name && e.Kind == BackendService {
			selfID = e.ID
			break
		}
	}

	return f.backend.GetBackendService(ctx, selfID, name)
}

// list is the cache-first lookup shared by GetWebService and
// GetWebServiceByAlgorithm, matching CacheMap's documented "on cache miss,
// a list against the backend populates the bucket before returning".
func (f *Facade) list(ctx context.Context, name string) ([]ServiceEntry, error) {
	if entries, ok := f.cache.Get(name); ok {
		return entries, nil
	}

	v, err, _ := f.single.DoChan(ctx, &f.sf, name, func() (interface{}, error) {
		entries, err := f.backend.List(ctx, name)
		if err != nil {
			return nil, err
		}
		f.cache.Fill(name, entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]ServiceEntry), nil
}

func endpointOf(entries []ServiceEntry) Endpoint {
	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Addr != "" {
			addrs = append(addrs, e.Addr)
		}
	}
	return Endpoint{Addresses: addrs}
}

func splitNames(name string) []string {
	parts := strings.Split(name, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// advertisedAddr derives "local_ip():port", honoring the STRICT
// environment override (§4.3 step 1).
func advertisedAddr(port string) (string, error) {
	if override := os.Getenv("STRICT"); override != "" {
		return override, nil
	}

	ip, err := fit.GetOutBoundIP()
	if err != nil {
		return "", err
	}

	return net.JoinHostPort(ip, port), nil
}
