package utils

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// SeedRequestID returns a random starting request id in [1e9, 1e10).
// Seeding from a wide random range keeps rids from colliding across
// client restarts against the same server.
func SeedRequestID() int64 {
	const (
		low  = int64(1_000_000_000)
		span = int64(9_000_000_000)
	)

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to timestamp if crypto/rand is unavailable.
		return low + time.Now().UnixNano()%span
	}
	n := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	return low + n%span
}
