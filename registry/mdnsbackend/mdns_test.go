package mdnsbackend

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEntryFiltersByWantedName(t *testing.T) {
	e := &mdns.ServiceEntry{
		Name:       "instance-1._crossgate._tcp.local.",
		AddrV4:     net.ParseIP("10.0.0.5"),
		Port:       8080,
		InfoFields: []string{"svc-a", "random"},
	}

	entry, ok := toEntry(e, "svc-b")
	assert.False(t, ok)

	entry, ok = toEntry(e, "svc-a")
	require.True(t, ok)
	assert.Equal(t, "svc-a", entry.Service)
	assert.Equal(t, "random", entry.Lba)
	assert.Equal(t, "10.0.0.5:8080", entry.Addr)
}

func TestToEntryRejectsMissingInfo(t *testing.T) {
	_, ok := toEntry(&mdns.ServiceEntry{}, "")
	assert.False(t, ok)
}
