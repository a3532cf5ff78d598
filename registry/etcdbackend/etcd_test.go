package etcdbackend

import (
	"testing"

	"github.com/source-build/go-crossgate/registry"
	"github.com/stretchr/testify/assert"
)

func TestSplitEndpointsStripsSchemeAndWhitespace(t *testing.T) {
	got := splitEndpoints("etcd://host1:2379, host2:2379")
	assert.Equal(t, []string{"host1:2379", "host2:2379"}, got)
}

func TestKeyForNamespacesByKindServiceAndID(t *testing.T) {
	entry := registry.ServiceEntry{ID: "abc", Service: "svc-a", Kind: registry.WebService}
	assert.Equal(t, "crossgate/services/1/svc-a/abc", keyFor(entry))
}

func TestIDFromKeyTakesLastSegment(t *testing.T) {
	assert.Equal(t, "abc", idFromKey("crossgate/services/1/svc-a/abc"))
	assert.Equal(t, "abc", idFromKey("abc"))
}

func TestToEntryRoundTrips(t *testing.T) {
	rec := entryRecord{ID: "x", Service: "svc", Lba: "round_robin", Addr: "10.0.0.1:80", Kind: 1}
	entry := toEntry(rec)
	assert.Equal(t, registry.ServiceEntry{ID: "x", Service: "svc", Lba: "round_robin", Addr: "10.0.0.1:80", Kind: registry.WebService}, entry)
}
