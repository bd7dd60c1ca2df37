package bfindex

import (
	"sync"

	"github.com/huandu/skiplist"
)

// IndexSet holds the loaded indexes for a set of flow data files, keyed and
// ordered by data file name. Flow files sort chronologically under the usual
// naming conventions, so ordered iteration walks time order.
//
// IndexSet is safe for concurrent use; the indexes it hands out follow their
// own concurrency rules.
type IndexSet struct {
	mu   sync.RWMutex
	list *skiplist.SkipList
}

// NewIndexSet returns an empty set.
func NewIndexSet() *IndexSet {
	return &IndexSet{list: skiplist.New(skiplist.String)}
}

// Put registers the index for a data file, replacing any previous one.
func (s *IndexSet) Put(dataFile string, idx *Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Set(dataFile, idx)
}

// Get returns the index registered for a data file.
func (s *IndexSet) Get(dataFile string) (*Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elem := s.list.Get(dataFile)
	if elem == nil {
		return nil, false
	}
	return elem.Value.(*Index), true
}

// Remove drops the index for a data file and reports whether it was present.
// The removed index is not closed; the caller owns that decision.
func (s *IndexSet) Remove(dataFile string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Remove(dataFile) != nil
}

// Len returns the number of registered data files.
func (s *IndexSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Len()
}

// Files returns the registered data file names in order.
func (s *IndexSet) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, s.list.Len())
	for elem := s.list.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Key().(string))
	}
	return out
}

// Candidates returns, in order, the data files whose index cannot rule the
// address out. Every file absent from the result provably does not contain
// addr and can be skipped; the listed files must still be scanned, since an
// index may answer maybe-present for an address the file never saw.
func (s *IndexSet) Candidates(addr []byte) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for elem := s.list.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*Index).Contains(addr) {
			out = append(out, elem.Key().(string))
		}
	}
	return out
}

// Close closes every index in the set and empties it. The first error is
// returned; remaining indexes are still closed.
func (s *IndexSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for elem := s.list.Front(); elem != nil; elem = elem.Next() {
		if err := elem.Value.(*Index).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.list = skiplist.New(skiplist.String)
	return firstErr
}
