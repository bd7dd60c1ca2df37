package bloom

import (
	"encoding/binary"
	"errors"
)

// Serialized filter layout, all integers big-endian:
//
//	offset 0: magic       u16 — Magic; anything else is a foreign file or an
//	                            endianness mismatch and is rejected first
//	offset 2: payloadLen  u32 — byte length of everything that follows
//	offset 6: payload:
//	    tableSizeBits     u64
//	    insertedElemCount u64
//	    hashFnCount       u32
//	    salts             [hashFnCount]u32
//	    bitset            ceil(tableSizeBits/8) bytes, LSB0 within each byte
const (
	// Magic tags serialized filters. A writer with the opposite byte order
	// produces a swapped value, so the check doubles as endianness detection.
	Magic uint16 = 0xB1F1

	headerLen       = 2 + 4
	payloadFixedLen = 8 + 8 + 4
)

// Serialization errors
var (
	ErrEmptyFilter  = errors.New("bloom: cannot serialize filter with empty bit array")
	ErrBadMagic     = errors.New("bloom: bad magic, not a serialized filter or endianness mismatch")
	ErrEmptyPayload = errors.New("bloom: serialized payload length is zero")
	ErrTruncated    = errors.New("bloom: serialized filter is truncated")
	ErrMalformed    = errors.New("bloom: serialized filter is internally inconsistent")
)

// MarshalBinary encodes the filter in the documented layout. The payload
// carries everything needed to reconstruct the filter, so no external
// parameters are required on load.
func (f *Filter) MarshalBinary() ([]byte, error) {
	raw := f.bits.bytes()
	if len(raw) == 0 {
		return nil, ErrEmptyFilter
	}

	payloadLen := payloadFixedLen + 4*len(f.params.Salts) + len(raw)
	out := make([]byte, headerLen+payloadLen)

	binary.BigEndian.PutUint16(out[0:2], Magic)
	binary.BigEndian.PutUint32(out[2:6], uint32(payloadLen))

	off := headerLen
	binary.BigEndian.PutUint64(out[off:], f.params.TableSizeBits)
	off += 8
	binary.BigEndian.PutUint64(out[off:], f.inserted)
	off += 8
	binary.BigEndian.PutUint32(out[off:], f.params.HashFnCount)
	off += 4
	for _, salt := range f.params.Salts {
		binary.BigEndian.PutUint32(out[off:], salt)
		off += 4
	}
	copy(out[off:], raw)
	return out, nil
}

// UnmarshalBinary reconstructs a filter from data produced by MarshalBinary.
//
// The magic is checked before anything else: it is the cheapest and most
// diagnostic failure point, catching foreign files, endianness mismatches and
// files truncated mid-write before any allocation happens.
func UnmarshalBinary(data []byte) (*Filter, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	if binary.BigEndian.Uint16(data[0:2]) != Magic {
		return nil, ErrBadMagic
	}
	if len(data) < headerLen {
		return nil, ErrTruncated
	}
	payloadLen := binary.BigEndian.Uint32(data[2:6])
	if payloadLen == 0 {
		return nil, ErrEmptyPayload
	}
	if uint64(len(data)-headerLen) < uint64(payloadLen) {
		return nil, ErrTruncated
	}
	payload := data[headerLen : headerLen+int(payloadLen)]
	if len(payload) < payloadFixedLen {
		return nil, ErrMalformed
	}

	tableBits := binary.BigEndian.Uint64(payload[0:8])
	inserted := binary.BigEndian.Uint64(payload[8:16])
	k := binary.BigEndian.Uint32(payload[16:20])
	if k == 0 || k > MaxHashFns || tableBits < MinTableBits || tableBits > MaxTableBits {
		return nil, ErrMalformed
	}
	want := uint64(payloadFixedLen) + 4*uint64(k) + bytesForBits(tableBits)
	if uint64(len(payload)) != want {
		return nil, ErrMalformed
	}

	salts := make([]uint32, k)
	off := payloadFixedLen
	for i := range salts {
		salts[i] = binary.BigEndian.Uint32(payload[off:])
		off += 4
	}
	raw := make([]byte, bytesForBits(tableBits))
	copy(raw, payload[off:])
	bits, err := bitsetFromBytes(raw, tableBits)
	if err != nil {
		return nil, ErrMalformed
	}

	return &Filter{
		params: Parameters{
			TableSizeBits: tableBits,
			HashFnCount:   k,
			Salts:         salts,
		},
		bits:     bits,
		inserted: inserted,
	}, nil
}
