// Package bfindex maintains Bloom filter indexes of the IP addresses
// appearing in flow data files. A query tool consults the index of each file
// and skips every file whose index proves the address absent; files the index
// cannot rule out are scanned normally. False positives only cost a wasted
// scan, never a missed record.
//
// One Index covers one data file. Indexes are built while the data file is
// written, then stored next to it and loaded back on the query side.
package bfindex

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/flowtools/bfindex/bloom"
	"github.com/flowtools/bfindex/tools/fileutil"
)

// ErrClosed is returned by operations on an index after Close.
var ErrClosed = errors.New("bfindex: index is closed")

const indexFileMode = 0644

// Index owns one Bloom filter together with the name of the file the filter
// persists to.
//
// Like the underlying filter, an Index is safe for concurrent Contains calls
// but mutations (Add, Clear, Store of a filter being mutated) need external
// serialization.
type Index struct {
	lg      *zap.Logger
	filter  *bloom.Filter
	fname   string
	journal *Journal
}

// New computes optimal filter parameters for the estimated item count and
// false-positive probability and returns an empty, ready index.
func New(lg *zap.Logger, estItemCnt uint64, fpProb float64) (*Index, error) {
	params := bloom.NewParameters(estItemCnt, fpProb)
	if err := params.ComputeOptimal(); err != nil {
		return nil, err
	}
	filter, err := bloom.NewFilter(params)
	if err != nil {
		return nil, err
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	lg.Debug("index initialized",
		zap.Uint64("est_item_cnt", estItemCnt),
		zap.Float64("fp_prob", fpProb),
		zap.Uint64("table_size_bits", params.TableSizeBits),
		zap.Uint32("hash_fn_cnt", params.HashFnCount))

	return &Index{lg: lg, filter: filter}, nil
}

// Load reads an index file and reconstructs the filter it holds. The filter
// needs no external parameters; everything is embedded in the file.
func Load(lg *zap.Logger, path string) (*Index, error) {
	begin := time.Now()
	data, err := fileutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load index %q", path)
	}
	filter, err := bloom.UnmarshalBinary(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load index %q", path)
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	loadTotal.Inc()
	loadDuration.Observe(time.Since(begin).Seconds())
	lg.Debug("index loaded",
		zap.String("path", path),
		zap.Uint64("items", filter.InsertedElementCount()))

	return &Index{lg: lg, filter: filter, fname: path}, nil
}

// Add records an address in the index. Repeated additions of the same
// address do not inflate the distinct-item count. When a journal is attached
// the address is journaled before the filter is touched, so a crash can never
// lose an address the journal does not have.
func (x *Index) Add(addr []byte) error {
	if x.filter == nil {
		return ErrClosed
	}
	if x.journal != nil {
		if err := x.journal.Append(addr); err != nil {
			return err
		}
	}
	x.filter.ContainsInsert(addr)
	addTotal.Inc()
	return nil
}

// Contains reports whether addr may be present in the indexed data file.
// False means the data file provably does not contain addr.
func (x *Index) Contains(addr []byte) bool {
	if x.filter == nil {
		return false
	}
	lookupTotal.Inc()
	if x.filter.Contains(addr) {
		lookupHitTotal.Inc()
		return true
	}
	return false
}

// Clear empties the filter and resets the distinct-item count; the filter
// parameters are kept, so the index can be refilled for the next data file.
func (x *Index) Clear() error {
	if x.filter == nil {
		return ErrClosed
	}
	x.filter.Clear()
	return nil
}

// ItemCount returns the number of distinct addresses added. Callers compare
// it to the estimate the index was built with and rebuild with larger
// parameters when growth exceeds the projection.
func (x *Index) ItemCount() uint64 {
	if x.filter == nil {
		return 0
	}
	return x.filter.InsertedElementCount()
}

// SetFilename sets the file the index will persist to.
func (x *Index) SetFilename(path string) {
	x.fname = path
}

// Filename returns the index file path, or "" if the index was never stored,
// loaded or named.
func (x *Index) Filename() string {
	return x.fname
}

// Store writes the index to path (or to the configured filename when path is
// empty) through an atomic temp-file rename. On success the journal, if any,
// is reset: every journaled address is now safely on disk.
func (x *Index) Store(path string) error {
	if x.filter == nil {
		return ErrClosed
	}
	if path == "" {
		path = x.fname
	}
	if path == "" {
		return errors.New("bfindex: no filename set for index")
	}

	begin := time.Now()
	data, err := x.filter.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "store index %q", path)
	}
	if err := fileutil.WriteFileAtomic(path, data, indexFileMode); err != nil {
		return errors.Wrapf(err, "store index %q", path)
	}
	x.fname = path

	if x.journal != nil {
		if err := x.journal.Reset(); err != nil {
			// The index file is valid; a stale journal only means extra
			// replay work after a crash.
			x.lg.Warn("journal reset failed after store", zap.Error(err))
		}
	}

	storeTotal.Inc()
	storeDuration.Observe(time.Since(begin).Seconds())
	x.lg.Debug("index stored",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Uint64("items", x.filter.InsertedElementCount()))
	return nil
}

// AttachJournal makes subsequent Adds journaled. The journal is reset by a
// successful Store and closed by Close.
func (x *Index) AttachJournal(j *Journal) {
	x.journal = j
}

// Close releases the filter and closes an attached journal. The index is
// unusable afterwards.
func (x *Index) Close() error {
	x.filter = nil
	if x.journal == nil {
		return nil
	}
	j := x.journal
	x.journal = nil
	return j.Close()
}

// Rebuild recreates an index from its journal after a crash: a fresh filter
// is built with the given parameters and every journaled address is replayed
// into it. The journal stays attached to the returned index.
func Rebuild(lg *zap.Logger, estItemCnt uint64, fpProb float64, j *Journal) (*Index, error) {
	x, err := New(lg, estItemCnt, fpProb)
	if err != nil {
		return nil, err
	}
	err = j.Replay(func(addr []byte) error {
		x.filter.ContainsInsert(addr)
		journalReplayTotal.Inc()
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "rebuild index from journal")
	}
	x.journal = j
	x.lg.Info("index rebuilt from journal", zap.Uint64("items", x.ItemCount()))
	return x, nil
}
