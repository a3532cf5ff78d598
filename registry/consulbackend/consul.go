// Package consulbackend implements registry.Backend against Consul's
// catalog API: register registers a service instance tagged with its
// logical name, lba and kind; list is a plain catalog query and watch uses
// Consul's blocking queries (the source leaves get_web_service/get_backend_service and all
// of Synchronize as todo!() stubs — this port fills in the full
// behavioral contract spec.md requires).
package consulbackend

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	consul "github.com/hashicorp/consul/api"
	"github.com/source-build/go-crossgate/registry"
	"go.uber.org/zap"
)

const (
	tagKindPrefix = "crossgate-kind:"
	tagLbaPrefix  = "crossgate-lba:"
	tagIDPrefix   = "crossgate-id:"

	watchTimeout  = 30 * time.Second
	retryInterval = 5 * time.Second
)

func init() {
	registry.RegisterBackend(registry.TypeConsul, New)
}

type backend struct {
	client *consul.Client
	logger *zap.Logger
}

// New dials Consul at cfg.Addr, given as "consul://<scheme>://host:port"
// per §6 (the outer scheme selects the backend, the inner one is HTTP vs
// HTTPS against the agent).
func New(cfg registry.Config) (registry.Backend, error) {
	scheme, addr, err := parseConsulAddr(cfg.Addr)
	if err != nil {
		return nil, err
	}

	client, err := consul.NewClient(&consul.Config{Address: addr, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("consulbackend: new client: %w", err)
	}

	return &backend{client: client, logger: cfg.Logger}, nil
}

func parseConsulAddr(raw string) (scheme, addr string, err error) {
	raw = strings.TrimPrefix(raw, "consul://")
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("consulbackend: invalid REGISTER_ADDR %q", raw)
	}

	scheme = u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return scheme, u.Host, nil
}

func (b *backend) Register(ctx context.Context, entry registry.ServiceEntry) error {
	host, portStr, err := splitHostPort(entry.Addr)
	if err != nil && entry.Addr != "" {
		return fmt.Errorf("consulbackend: invalid addr %q: %w", entry.Addr, err)
	}

	port, _ := strconv.Atoi(portStr)

	reg := &consul.AgentServiceRegistration{
		ID:      entry.ID,
		Name:    entry.Service,
		Address: host,
		Port:    port,
		Tags: []string{
			tagKindPrefix + strconv.Itoa(int(entry.Kind)),
			tagLbaPrefix + entry.Lba,
			tagIDPrefix + entry.ID,
		},
		Check: &consul.AgentServiceCheck{
			TTL:                            "15s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := b.client.Agent().ServiceRegisterOpts(reg, consul.ServiceRegisterOpts{}.WithContext(ctx)); err != nil {
		return fmt.Errorf("consulbackend: register: %w", err)
	}

	return nil
}

func (b *backend) Unregister(ctx context.Context, id string) error {
	if err := b.client.Agent().ServiceDeregisterOpts(id, (&consul.QueryOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("consulbackend: deregister: %w", err)
	}
	return nil
}

func (b *backend) List(ctx context.Context, name string) ([]registry.ServiceEntry, error) {
	services, _, err := b.client.Catalog().Service(name, "", (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("consulbackend: catalog service: %w", err)
	}

	out := make([]registry.ServiceEntry, 0, len(services))
	for _, svc := range services {
		out = append(out, toEntry(name, svc))
	}
	return out, nil
}

func (b *backend) GetBackendService(ctx context.Context, selfID, name string) (string, []string, error) {
	entries, err := b.List(ctx, name)
	if err != nil {
		return "", nil, err
	}

	var peers []registry.ServiceEntry
	for _, e := range entries {
		if e.Kind == registry.BackendService {
			peers = append(peers, e)
		}
	}

	found := ""
	for _, e := range peers {
		if e.ID == selfID {
			found = e.ID
		}
	}

	return found, registry.SortedIDs(peers), nil
}

// Watch polls the catalog with Consul's blocking-query index, waking only
// when the catalog changes (or the query times out), then diffs against
// the previous snapshot to upsert/delete cache entries by id.
func (b *backend) Watch(ctx context.Context, cache *registry.CacheMap) error {
	var lastIndex uint64
	seen := map[string]registry.ServiceEntry{}

	for {
		if ctx.Err() != nil {
			return nil
		}

		names, meta, err := b.client.Catalog().Services((&consul.QueryOptions{
			WaitIndex: lastIndex,
			WaitTime:  watchTimeout,
		}).WithContext(ctx))
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("consulbackend: watch services failed, retrying", zap.Error(err))
			}
			if sleepOrDone(ctx, retryInterval) {
				return nil
			}
			continue
		}
		lastIndex = meta.LastIndex

		current := map[string]registry.ServiceEntry{}
		for name := range names {
			entries, err := b.List(ctx, name)
			if err != nil {
				continue
			}
			for _, e := range entries {
				current[e.ID] = e
				if prev, ok := seen[e.ID]; !ok || prev != e {
					cache.Upsert(e)
				}
			}
		}

		for id := range seen {
			if _, ok := current[id]; !ok {
				cache.Delete(id)
			}
		}
		seen = current
	}
}

func (b *backend) Renew(ctx context.Context, owned *registry.OwnedSet) error {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, entry := range owned.All() {
				uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := b.Unregister(uctx, entry.ID); err != nil && b.logger != nil {
					b.logger.Warn("consulbackend: deregister on shutdown failed", zap.String("id", entry.ID), zap.Error(err))
				}
				cancel()
			}
			return nil
		case <-ticker.C:
			for _, entry := range owned.All() {
				if err := b.client.Agent().PassTTL("service:"+entry.ID, ""); err != nil && b.logger != nil {
					b.logger.Warn("consulbackend: ttl pass failed", zap.String("id", entry.ID), zap.Error(err))
				}
			}
		}
	}
}

func toEntry(name string, svc *consul.CatalogService) registry.ServiceEntry {
	entry := registry.ServiceEntry{
		ID:      svc.ServiceID,
		Service: name,
		Kind:    registry.WebService,
		Addr:    net.JoinHostPort(svc.ServiceAddress, strconv.Itoa(svc.ServicePort)),
	}

	for _, tag := range svc.ServiceTags {
		switch {
		case strings.HasPrefix(tag, tagLbaPrefix):
			entry.Lba = strings.TrimPrefix(tag, tagLbaPrefix)
		case strings.HasPrefix(tag, tagKindPrefix):
			if n, err := strconv.Atoi(strings.TrimPrefix(tag, tagKindPrefix)); err == nil {
				entry.Kind = registry.Kind(n)
			}
		case strings.HasPrefix(tag, tagIDPrefix):
			entry.ID = strings.TrimPrefix(tag, tagIDPrefix)
		}
	}

	return entry
}

func splitHostPort(addr string) (host, port string, err error) {
	if addr == "" {
		return "", "", nil
	}
	return net.SplitHostPort(addr)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
