// Package lba implements the load-balancing strategies a registered service
// carries as its LbaTag: round-robin, random, and strict (pinned address).
package lba

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoAvailableAddress is returned when a balancer has nothing to select from.
var ErrNoAvailableAddress = errors.New("lba: no available address")

// ErrStrictMismatch is returned by a Strict balancer when the pinned address
// is not present in the endpoint's address list.
var ErrStrictMismatch = errors.New("lba: strict address not present in endpoint")

// Balancer selects one address out of an endpoint's resolved address list.
//
// All implementations must be safe for concurrent use, since a single
// Balancer instance is shared across every goroutine resolving a given
// service name.
type Balancer interface {
	// Select chooses one address from addrs according to the balancer's
	// algorithm.
	Select(addrs []string) (string, error)

	// Name returns the wire form of the balancer's LbaTag.
	Name() string
}

// Tag identifies a load-balancing algorithm by its wire representation.
type Tag string

const (
	RoundRobin Tag = "round_robin"
	Random     Tag = "random"
	Strict     Tag = "strict"
)

// ParseTag parses a wire-format LbaTag, case-insensitively, defaulting to
// RoundRobin when s is empty or unrecognized. A recognized "strict" tag
// carries no address by itself — callers construct the Strict balancer
// separately once the pinned address is known (see NewStrict).
func ParseTag(s string) Tag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return Random
	case "strict":
		return Strict
	case "round_robin", "roundrobin", "":
		return RoundRobin
	default:
		return RoundRobin
	}
}

// roundRobinBalancer cycles through addresses in order using an atomic
// counter, so Select never takes a lock on the hot path.
type roundRobinBalancer struct {
	counter uint64
}

// NewRoundRobin returns a round-robin Balancer.
func NewRoundRobin() Balancer {
	return &roundRobinBalancer{}
}

func (r *roundRobinBalancer) Select(addrs []string) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoAvailableAddress
	}

	// counter-1: AddUint64 returns the post-increment value (first call
	// yields 1), but spec §4.1 indexes as addresses[(counter-1) mod n] so
	// the first call selects addrs[0].
	index := (atomic.AddUint64(&r.counter, 1) - 1) % uint64(len(addrs))
	return addrs[index], nil
}

func (r *roundRobinBalancer) Name() string { return string(RoundRobin) }

// randomBalancer selects an address uniformly at random.
type randomBalancer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a random Balancer.
func NewRandom() Balancer {
	return &randomBalancer{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *randomBalancer) Select(addrs []string) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoAvailableAddress
	}

	r.mu.Lock()
	index := r.rnd.Intn(len(addrs))
	r.mu.Unlock()

	return addrs[index], nil
}

func (r *randomBalancer) Name() string { return string(Random) }

// strictBalancer always resolves to a single pinned address, rejecting the
// endpoint if the pin is not among its resolved addresses. This is the
// resolved Open Question from the original: a pin naming an address the
// endpoint no longer carries is a miss, not an unconditional pass-through.
type strictBalancer struct {
	addr string
}

// NewStrict returns a Balancer pinned to addr.
func NewStrict(addr string) Balancer {
	return &strictBalancer{addr: addr}
}

func (s *strictBalancer) Select(addrs []string) (string, error) {
	for _, a := range addrs {
		if a == s.addr {
			return a, nil
		}
	}
	return "", ErrStrictMismatch
}

func (s *strictBalancer) Name() string { return string(Strict) }

// New constructs a Balancer for tag. addr is only consulted for Strict.
func New(tag Tag, addr string) Balancer {
	switch tag {
	case Random:
		return NewRandom()
	case Strict:
		return NewStrict(addr)
	default:
		return NewRoundRobin()
	}
}
