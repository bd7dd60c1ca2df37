package bloom

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// positions derives one bit position per salt by hashing the salt (4 bytes,
// big-endian) followed by the item through xxhash64 and reducing the sum
// modulo tableBits.
//
// Each salt seeds an independent digest. Double hashing (h1 + i*h2) is
// deliberately not used: its step size correlates with tableBits whenever the
// two share factors, which degrades the false-positive rate.
//
// The mapping is fully deterministic. Identical (item, salts, tableBits)
// produce identical positions across processes and platforms, which persisted
// filters rely on.
func positions(item []byte, salts []uint32, tableBits uint64) []uint64 {
	var seed [4]byte
	var d xxhash.Digest

	out := make([]uint64, len(salts))
	for i, salt := range salts {
		binary.BigEndian.PutUint32(seed[:], salt)
		d.Reset()
		_, _ = d.Write(seed[:])
		_, _ = d.Write(item)
		out[i] = d.Sum64() % tableBits
	}
	return out
}
