// Package bloom implements the Bloom filter engine behind the bfindex
// address indexes: parameter optimization, the insert/query algorithm,
// distinct-element bookkeeping and the binary serialization format.
//
// A Bloom filter answers "definitely not present" or "maybe present". False
// positives occur with a configurable probability; false negatives never, for
// items actually inserted.
package bloom

// Filter is a Bloom filter over opaque byte strings (IP addresses in the
// flow-indexing use case).
//
// A Filter is not safe for concurrent mutation. Concurrent Contains calls are
// safe as long as no Insert/ContainsInsert/Clear runs at the same time;
// callers that mix the two must serialize the mutating path externally.
type Filter struct {
	params   Parameters
	bits     *bitset
	inserted uint64
}

// NewFilter builds an empty filter from parameters that passed
// ComputeOptimal. Parameters that were never validated are rejected.
func NewFilter(params Parameters) (*Filter, error) {
	if !params.valid() {
		return nil, ErrInvalidParams
	}
	return &Filter{
		params: params,
		bits:   newBitset(params.TableSizeBits),
	}, nil
}

// Insert sets the k bits for item. Bits already set stay set, so repeated
// inserts of the same item are no-ops. Insert does not touch the
// distinct-element counter; use ContainsInsert when the counter matters.
func (f *Filter) Insert(item []byte) {
	for _, pos := range positions(item, f.params.Salts, f.params.TableSizeBits) {
		f.bits.set(pos)
	}
}

// Contains reports whether item may have been inserted: true iff all k bits
// are set. An item previously inserted is always reported present.
func (f *Filter) Contains(item []byte) bool {
	for _, pos := range positions(item, f.params.Salts, f.params.TableSizeBits) {
		if !f.bits.test(pos) {
			return false
		}
	}
	return true
}

// ContainsInsert tests and inserts in one pass. When every bit for item was
// already set it returns true and changes nothing. Otherwise it sets the
// missing bits, counts item as one new distinct element and returns false.
//
// This is the preferred insertion entry point: it is the only operation that
// keeps InsertedElementCount a distinct-item count rather than a call count.
func (f *Filter) ContainsInsert(item []byte) bool {
	present := true
	for _, pos := range positions(item, f.params.Salts, f.params.TableSizeBits) {
		if !f.bits.test(pos) {
			present = false
			f.bits.set(pos)
		}
	}
	if !present {
		f.inserted++
	}
	return present
}

// Clear zeroes the bit array and the distinct-element counter. The sizing
// parameters are retained, leaving the filter equivalent to one freshly built
// from the same Parameters.
func (f *Filter) Clear() {
	f.bits.clearAll()
	f.inserted = 0
}

// InsertedElementCount returns the number of distinct items added through
// ContainsInsert. The count is exact unless two distinct items collided on
// all k bits before both were inserted. Callers compare it against the
// projected element count to decide when a filter should be rebuilt with
// larger parameters.
func (f *Filter) InsertedElementCount() uint64 {
	return f.inserted
}

// Params returns a copy of the filter's parameters. The salt slice is cloned
// so the filter's own state cannot be mutated through it.
func (f *Filter) Params() Parameters {
	p := f.params
	p.Salts = append([]uint32(nil), f.params.Salts...)
	return p
}
