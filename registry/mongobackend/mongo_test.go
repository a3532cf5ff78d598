package mongobackend

import (
	"testing"
	"time"

	"github.com/source-build/go-crossgate/registry"
	"github.com/stretchr/testify/assert"
)

func TestToEntryMapsTypeToKind(t *testing.T) {
	doc := document{ID: "abc", Service: "svc-a", Lba: "random", Addr: "10.0.0.1:80", Type: 2, Time: time.Now()}
	entry := toEntry(doc)
	assert.Equal(t, registry.ServiceEntry{ID: "abc", Service: "svc-a", Lba: "random", Addr: "10.0.0.1:80", Kind: registry.BackendService}, entry)
}
