// Package mdnsbackend implements registry.Backend over mDNS: advertise a
// service via a zeroconf responder and discover peers via LAN multicast
// lookup. Matching the prototype's mdns_plugin.rs, this backend has no
// renewal — there is no lease/renewal concept in mDNS (the
// responder just answers queries for as long as the process is alive),
// and get_backend_service has no peer-ordering story since mDNS carries
// no stable id beyond the instance name.
package mdnsbackend

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/mdns"
	"github.com/source-build/go-crossgate/registry"
)

const serviceSuffix = "_crossgate._tcp"

func init() {
	registry.RegisterBackend(registry.TypeMDNS, New)
}

type backend struct {
	servers map[string]*mdns.Server
}

// New returns the mDNS backend. cfg.Addr is unused — mDNS is LAN multicast
// discovery and carries no connection address.
func New(registry.Config) (registry.Backend, error) {
	return &backend{servers: make(map[string]*mdns.Server)}, nil
}

// Register starts a zeroconf responder advertising entry. Unlike the
// lease-based backends, there is nothing to renew afterward: the
// responder answers until the process exits or Unregister shuts it down.
func (b *backend) Register(_ context.Context, entry registry.ServiceEntry) error {
	host, portStr, err := net.SplitHostPort(entry.Addr)
	if err != nil {
		return fmt.Errorf("mdnsbackend: invalid addr %q: %w", entry.Addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("mdnsbackend: invalid port %q: %w", portStr, err)
	}

	instance := entry.ID
	if instance == "" {
		instance = uuid.NewString()
	}

	info := []string{entry.Service, entry.Lba}
	svc, err := mdns.NewMDNSService(instance, serviceSuffix, "", host, port, nil, info)
	if err != nil {
		return fmt.Errorf("mdnsbackend: build service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return fmt.Errorf("mdnsbackend: start responder: %w", err)
	}

	b.servers[entry.ID] = server
	return nil
}

func (b *backend) Unregister(_ context.Context, id string) error {
	server, ok := b.servers[id]
	if !ok {
		return nil
	}
	delete(b.servers, id)
	return server.Shutdown()
}

// List runs a blocking LAN lookup for entries advertising name. mDNS has
// no central store, so this is always a live network query; there is no
// cache-bypassing distinction to make here.
func (b *backend) List(ctx context.Context, name string) ([]registry.ServiceEntry, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(serviceSuffix)
	params.Entries = entriesCh
	params.Timeout = 2 * time.Second

	done := make(chan error, 1)
	go func() { done <- mdns.Query(params) }()

	var out []registry.ServiceEntry
	for {
		select {
		case e, ok := <-entriesCh:
			if !ok {
				return out, nil
			}
			if entry, match := toEntry(e, name); match {
				out = append(out, entry)
			}
		case err := <-done:
			close(entriesCh)
			return out, err
		case <-ctx.Done():
			return out, nil
		}
	}
}

func (b *backend) GetBackendService(ctx context.Context, selfID, name string) (string, []string, error) {
	entries, err := b.List(ctx, name)
	if err != nil {
		return "", nil, err
	}
	return "", registry.SortedIDs(entries), nil
}

// Watch has no native mDNS event stream to follow; it re-queries the LAN
// on an interval and diffs against the previous snapshot, same shape as
// the polling fallback used by the other backends' resilience path.
func (b *backend) Watch(ctx context.Context, cache *registry.CacheMap) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	seen := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			entriesCh := make(chan *mdns.ServiceEntry, 16)
			params := mdns.DefaultParams(serviceSuffix)
			params.Entries = entriesCh
			params.Timeout = 2 * time.Second

			go func() {
				_ = mdns.Query(params)
				close(entriesCh)
			}()

			current := map[string]struct{}{}
			for e := range entriesCh {
				if entry, ok := toEntry(e, ""); ok {
					current[entry.ID] = struct{}{}
					cache.Upsert(entry)
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
}

// Renew refreshes nothing: the zeroconf responder started in Register
// answers queries for as long as it is running. Renew only waits for ctx
// to be done and then shuts down the responder of every owned entry.
func (b *backend) Renew(ctx context.Context, owned *registry.OwnedSet) error {
	<-ctx.Done()
	for _, entry := range owned.All() {
		_ = b.Unregister(context.Background(), entry.ID)
	}
	return nil
}

func toEntry(e *mdns.ServiceEntry, wantName string) (registry.ServiceEntry, bool) {
	if len(e.InfoFields) < 1 {
		return registry.ServiceEntry{}, false
	}

	service := e.InfoFields[0]
	if wantName != "" && service != wantName {
		return registry.ServiceEntry{}, false
	}

	lba := ""
	if len(e.InfoFields) > 1 {
		lba = e.InfoFields[1]
	}

	return registry.ServiceEntry{
		ID:      e.Name,
		Service: service,
		Lba:     lba,
		Addr:    net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)),
		Kind:    registry.WebService,
	}, true
}
