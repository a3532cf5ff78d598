package lba

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinCyclesInOrder(t *testing.T) {
	addrs := []string{"10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080"}
	b := NewRoundRobin()

	seen := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		addr, err := b.Select(addrs)
		require.NoError(t, err)
		seen = append(seen, addr)
	}

	assert.Equal(t, seen[:3], seen[3:])
}

func TestRoundRobinFirstCallSelectsFirstAddress(t *testing.T) {
	addrs := []string{"10.0.0.1:8080", "10.0.0.2:8080"}
	b := NewRoundRobin()

	addr, err := b.Select(addrs)
	require.NoError(t, err)
	assert.Equal(t, addrs[0], addr)

	addr, err = b.Select(addrs)
	require.NoError(t, err)
	assert.Equal(t, addrs[1], addr)
}

func TestRoundRobinConcurrentSelectStaysInBounds(t *testing.T) {
	addrs := []string{"a:1", "b:2", "c:3"}
	b := NewRoundRobin()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Select(addrs)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestRoundRobinEmptyReturnsError(t *testing.T) {
	b := NewRoundRobin()
	_, err := b.Select(nil)
	assert.ErrorIs(t, err, ErrNoAvailableAddress)
}

func TestRandomSelectsFromSet(t *testing.T) {
	addrs := []string{"a:1", "b:2"}
	b := NewRandom()
	for i := 0; i < 20; i++ {
		addr, err := b.Select(addrs)
		require.NoError(t, err)
		assert.Contains(t, addrs, addr)
	}
}

func TestStrictRejectsUnknownPin(t *testing.T) {
	b := NewStrict("10.0.0.9:9000")
	_, err := b.Select([]string{"10.0.0.1:8080"})
	assert.ErrorIs(t, err, ErrStrictMismatch)
}

func TestStrictAcceptsKnownPin(t *testing.T) {
	b := NewStrict("10.0.0.1:8080")
	addr, err := b.Select([]string{"10.0.0.9:9000", "10.0.0.1:8080"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", addr)
}

func TestParseTagDefaultsToRoundRobin(t *testing.T) {
	assert.Equal(t, RoundRobin, ParseTag(""))
	assert.Equal(t, RoundRobin, ParseTag("bogus"))
	assert.Equal(t, Random, ParseTag("RANDOM"))
	assert.Equal(t, Strict, ParseTag("Strict"))
}

func TestNewDispatchesByTag(t *testing.T) {
	assert.Equal(t, "round_robin", New(RoundRobin, "").Name())
	assert.Equal(t, "random", New(Random, "").Name())
	assert.Equal(t, "strict", New(Strict, "x").Name())
}
