package records

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// randomSipHashKey draws a fresh 128-bit SipHash key from crypto/rand at
// process startup rather than using a fixed constant, so a fingerprint
// cannot be precomputed offline from known configuration content.
func randomSipHashKey() [2]uint64 {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("records: crypto/rand failed: %v", err))
	}
	var key [2]uint64
	key[0] = binary.LittleEndian.Uint64(buf[0:8])
	key[1] = binary.LittleEndian.Uint64(buf[8:16])
	return key
}
