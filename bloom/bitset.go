package bloom

import "errors"

var ErrLengthMismatch = errors.New("bloom: bitset byte length does not match declared bit length")

// bitset packs bits 8 per byte, least-significant bit first within each byte:
// bit i lives at byte i>>3 under mask 1<<(i&7). The layout is part of the
// serialized format and must not change.
type bitset struct {
	bits uint64
	b    []byte
}

func newBitset(bits uint64) *bitset {
	return &bitset{bits: bits, b: make([]byte, bytesForBits(bits))}
}

// bitsetFromBytes adopts b as the backing array. The length must match the
// declared bit length exactly.
func bitsetFromBytes(b []byte, bits uint64) (*bitset, error) {
	if uint64(len(b)) != bytesForBits(bits) {
		return nil, ErrLengthMismatch
	}
	return &bitset{bits: bits, b: b}, nil
}

func bytesForBits(bits uint64) uint64 {
	return (bits + 7) / 8
}

func (s *bitset) set(i uint64) {
	s.b[i>>3] |= 1 << (i & 7)
}

func (s *bitset) test(i uint64) bool {
	return s.b[i>>3]&(1<<(i&7)) != 0
}

func (s *bitset) clearAll() {
	clear(s.b)
}

// bytes returns the backing array without copying. The view aliases the
// filter's state; callers must not hold it across mutations.
func (s *bitset) bytes() []byte {
	return s.b
}
