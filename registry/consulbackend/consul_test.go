package consulbackend

import (
	"testing"

	consul "github.com/hashicorp/consul/api"
	"github.com/source-build/go-crossgate/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConsulAddrSplitsOuterAndInnerScheme(t *testing.T) {
	scheme, addr, err := parseConsulAddr("consul://https://localhost:8500")
	require.NoError(t, err)
	assert.Equal(t, "https", scheme)
	assert.Equal(t, "localhost:8500", addr)
}

func TestParseConsulAddrRejectsMissingHost(t *testing.T) {
	_, _, err := parseConsulAddr("consul://")
	assert.Error(t, err)
}

func TestToEntryReadsTagsBack(t *testing.T) {
	svc := &consul.CatalogService{
		ServiceID:      "fallback-id",
		ServiceAddress: "10.0.0.1",
		ServicePort:    8080,
		ServiceTags: []string{
			tagKindPrefix + "2",
			tagLbaPrefix + "random",
			tagIDPrefix + "abc-123",
		},
	}

	entry := toEntry("svc-a", svc)
	assert.Equal(t, registry.ServiceEntry{
		ID:      "abc-123",
		Service: "svc-a",
		Lba:     "random",
		Addr:    "10.0.0.1:8080",
		Kind:    registry.BackendService,
	}, entry)
}
