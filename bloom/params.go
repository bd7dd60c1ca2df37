package bloom

import (
	"errors"
	"math"
)

// Sizing limits
const (
	// MaxHashFns caps the number of hash passes per operation. Pathological
	// (n, p) combinations can otherwise request thousands of passes per
	// lookup.
	MaxHashFns = 32

	// MaxTableBits bounds the bit array at 32 GiB so the byte length stays
	// within int range on 32-bit platforms.
	MaxTableBits = uint64(1) << 38

	// MinTableBits is the floor for degenerate inputs.
	MinTableBits = 8
)

// Common errors
var (
	ErrInvalidParams = errors.New("bloom: element count must be positive and probability in (0,1)")
	ErrTableOverflow = errors.New("bloom: optimal table size exceeds supported maximum")
)

// saltStream seeds the generator that produces per-hash salts. It is a fixed
// constant so that two filters built with identical (n, p) end up with
// identical parameters, which persisted filters depend on.
const saltStream = uint64(0x9e3779b97f4a7c15)

// Parameters holds the requested sizing of a filter together with the derived
// table size, hash count and salts.
//
// The zero value is not usable: ComputeOptimal must succeed before the
// parameters may be passed to NewFilter.
type Parameters struct {
	// Requested
	ProjectedElementCount    uint64
	FalsePositiveProbability float64

	// Derived by ComputeOptimal
	TableSizeBits uint64
	HashFnCount   uint32
	Salts         []uint32
}

// NewParameters wraps the requested sizing. ComputeOptimal must still be
// called before the parameters can build a filter.
func NewParameters(projected uint64, fpProb float64) Parameters {
	return Parameters{
		ProjectedElementCount:    projected,
		FalsePositiveProbability: fpProb,
	}
}

// ComputeOptimal derives the bit-array size, hash-function count and salts
// for the requested element count n and false-positive probability p:
//
//	m = ceil(-n*ln(p) / ln(2)^2), rounded up to whole bytes, min 8 bits
//	k = round((m/n) * ln(2)), clamped to [1, MaxHashFns]
func (p *Parameters) ComputeOptimal() error {
	if p.ProjectedElementCount == 0 ||
		p.FalsePositiveProbability <= 0 || p.FalsePositiveProbability >= 1 {
		return ErrInvalidParams
	}

	n := float64(p.ProjectedElementCount)
	m := math.Ceil(-n * math.Log(p.FalsePositiveProbability) / (math.Ln2 * math.Ln2))
	if m < MinTableBits {
		m = MinTableBits
	}
	// Reject before converting: a large enough m does not fit in uint64.
	if m > float64(MaxTableBits) {
		return ErrTableOverflow
	}
	bits := (uint64(m) + 7) &^ 7
	if bits > MaxTableBits {
		return ErrTableOverflow
	}

	k := uint32(math.Round(float64(bits) / n * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > MaxHashFns {
		k = MaxHashFns
	}

	p.TableSizeBits = bits
	p.HashFnCount = k
	p.Salts = makeSalts(k)
	return nil
}

// valid reports whether the derived fields are consistent, i.e. whether
// ComputeOptimal ran (or deserialization filled them in).
func (p *Parameters) valid() bool {
	return p.TableSizeBits >= MinTableBits &&
		p.TableSizeBits <= MaxTableBits &&
		p.HashFnCount >= 1 && p.HashFnCount <= MaxHashFns &&
		len(p.Salts) == int(p.HashFnCount)
}

// makeSalts draws k distinct 32-bit salts from a fixed splitmix64 stream.
func makeSalts(k uint32) []uint32 {
	salts := make([]uint32, 0, k)
	seen := make(map[uint32]struct{}, k)
	state := saltStream
	for uint32(len(salts)) < k {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		s := uint32(z)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		salts = append(salts, s)
	}
	return salts
}
