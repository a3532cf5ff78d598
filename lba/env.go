package lba

import "os"

// FromEnvironment mirrors the original prototype's default-LBA resolution:
// when STRICT is set and non-empty, newly registered services default to a
// Strict balancer pinned to that address rather than RoundRobin. Absent
// STRICT, it returns RoundRobin.
func FromEnvironment() (Tag, string) {
	if addr := os.Getenv("STRICT"); addr != "" {
		return Strict, addr
	}
	return RoundRobin, ""
}
