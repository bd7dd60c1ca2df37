package bfindex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T, addrs ...string) *Index {
	t.Helper()
	x, err := New(zap.NewNop(), 1000, 0.01)
	require.NoError(t, err)
	for _, addr := range addrs {
		require.NoError(t, x.Add([]byte(addr)))
	}
	return x
}

func TestIndexSetPutGetRemove(t *testing.T) {
	s := NewIndexSet()

	x := newTestIndex(t, "10.0.0.1")
	s.Put("nfcapd.202608251200", x)

	got, ok := s.Get("nfcapd.202608251200")
	require.True(t, ok)
	assert.Same(t, x, got)

	_, ok = s.Get("nfcapd.202608251300")
	assert.False(t, ok)

	assert.True(t, s.Remove("nfcapd.202608251200"))
	assert.False(t, s.Remove("nfcapd.202608251200"))
	assert.Zero(t, s.Len())
}

func TestIndexSetFilesOrdered(t *testing.T) {
	s := NewIndexSet()

	// Inserted out of order; Files must come back sorted (chronological for
	// timestamped capture file names).
	for _, name := range []string{
		"nfcapd.202608251300",
		"nfcapd.202608251100",
		"nfcapd.202608251200",
	} {
		s.Put(name, newTestIndex(t))
	}

	assert.Equal(t, []string{
		"nfcapd.202608251100",
		"nfcapd.202608251200",
		"nfcapd.202608251300",
	}, s.Files())
}

func TestIndexSetCandidates(t *testing.T) {
	s := NewIndexSet()

	s.Put("fileA", newTestIndex(t, "10.0.0.1", "10.0.0.2"))
	s.Put("fileB", newTestIndex(t, "10.0.0.3"))
	s.Put("fileC", newTestIndex(t, "10.0.0.1", "10.0.0.4"))

	// Files whose index rules the address out are skipped entirely.
	assert.Equal(t, []string{"fileA", "fileC"}, s.Candidates([]byte("10.0.0.1")))
	assert.Equal(t, []string{"fileB"}, s.Candidates([]byte("10.0.0.3")))
	assert.Empty(t, s.Candidates([]byte("172.31.255.254")))
}

func TestIndexSetCandidatesManyFiles(t *testing.T) {
	s := NewIndexSet()

	needle := []byte("10.20.30.40")
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("nfcapd.%04d", i)
		if i == 17 || i == 42 {
			s.Put(name, newTestIndex(t, string(needle)))
		} else {
			s.Put(name, newTestIndex(t, fmt.Sprintf("192.168.0.%d", i)))
		}
	}

	got := s.Candidates(needle)
	assert.Contains(t, got, "nfcapd.0017")
	assert.Contains(t, got, "nfcapd.0042")
	// The other indexes hold one address each against capacity 1000, so
	// false positives among them are vanishingly rare.
	assert.LessOrEqual(t, len(got), 4)
}

func TestIndexSetClose(t *testing.T) {
	s := NewIndexSet()
	x := newTestIndex(t, "10.0.0.1")
	s.Put("fileA", x)

	require.NoError(t, s.Close())
	assert.Zero(t, s.Len())
	assert.ErrorIs(t, x.Add([]byte("10.0.0.2")), ErrClosed)
}
