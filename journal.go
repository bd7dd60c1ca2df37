package bfindex

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	pWal "github.com/tidwall/wal"
	"go.uber.org/zap"
)

// Journal is an append-only log of the addresses added to an index that has
// not been stored yet. The in-memory filter of a crashed writer is gone;
// replaying the journal into a fresh filter recovers it without rescanning
// the flow data file.
type Journal struct {
	lg   *zap.Logger
	path string

	mu     sync.Mutex
	log    *pWal.Log
	next   uint64
	closed bool
}

// OpenJournal opens (or creates) the journal directory at path and positions
// the write index after any entries surviving a previous run.
func OpenJournal(lg *zap.Logger, path string) (*Journal, error) {
	log, err := pWal.Open(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %q", path)
	}
	last, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.Wrapf(err, "journal last index %q", path)
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Journal{lg: lg, path: path, log: log, next: last + 1}, nil
}

// Append writes one address to the journal.
func (j *Journal) Append(addr []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("bfindex: journal is closed")
	}
	if err := j.log.Write(j.next, addr); err != nil {
		return errors.Wrapf(err, "append journal entry %d", j.next)
	}
	j.next++
	journalAppendTotal.Inc()
	return nil
}

// Replay feeds every journaled address to fn in append order. A non-nil
// error from fn aborts the replay and is returned unchanged.
func (j *Journal) Replay(fn func(addr []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("bfindex: journal is closed")
	}

	first, err := j.log.FirstIndex()
	if err != nil {
		return errors.Wrap(err, "journal first index")
	}
	last, err := j.log.LastIndex()
	if err != nil {
		return errors.Wrap(err, "journal last index")
	}
	if last == 0 {
		// Empty journal.
		return nil
	}

	for i := first; i <= last; i++ {
		addr, err := j.log.Read(i)
		if err != nil {
			return errors.Wrapf(err, "read journal entry %d", i)
		}
		if err := fn(addr); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of journaled entries.
func (j *Journal) Len() (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, errors.New("bfindex: journal is closed")
	}
	first, err := j.log.FirstIndex()
	if err != nil {
		return 0, errors.Wrap(err, "journal first index")
	}
	last, err := j.log.LastIndex()
	if err != nil {
		return 0, errors.Wrap(err, "journal last index")
	}
	if last == 0 {
		return 0, nil
	}
	return last - first + 1, nil
}

// Reset drops all entries, typically right after the index was stored. The
// underlying log cannot be truncated to empty in place, so it is closed,
// removed and reopened.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("bfindex: journal is closed")
	}

	if err := j.log.Close(); err != nil {
		return errors.Wrapf(err, "close journal %q for reset", j.path)
	}
	if err := os.RemoveAll(j.path); err != nil {
		return errors.Wrapf(err, "remove journal %q", j.path)
	}
	log, err := pWal.Open(j.path, nil)
	if err != nil {
		return errors.Wrapf(err, "reopen journal %q", j.path)
	}
	j.log = log
	j.next = 1
	j.lg.Debug("journal reset", zap.String("path", j.path))
	return nil
}

// Close closes the journal. Entries on disk are kept; a later OpenJournal
// picks them up again.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.log.Close(); err != nil {
		return errors.Wrapf(err, "close journal %q", j.path)
	}
	return nil
}
