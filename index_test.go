package bfindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowtools/bfindex/bloom"
)

func TestIndexAddContains(t *testing.T) {
	x, err := New(zap.NewNop(), 1000, 0.01)
	require.NoError(t, err)
	defer x.Close()

	require.NoError(t, x.Add([]byte("10.0.0.1")))
	require.NoError(t, x.Add([]byte("10.0.0.2")))

	assert.True(t, x.Contains([]byte("10.0.0.1")))
	assert.True(t, x.Contains([]byte("10.0.0.2")))
	assert.False(t, x.Contains([]byte("10.0.0.3")))
	assert.Equal(t, uint64(2), x.ItemCount())

	// Re-adding does not inflate the distinct count.
	require.NoError(t, x.Add([]byte("10.0.0.1")))
	assert.Equal(t, uint64(2), x.ItemCount())
}

func TestIndexInvalidParameters(t *testing.T) {
	_, err := New(zap.NewNop(), 0, 0.01)
	assert.ErrorIs(t, err, bloom.ErrInvalidParams)

	_, err = New(zap.NewNop(), 1000, 1.5)
	assert.ErrorIs(t, err, bloom.ErrInvalidParams)
}

func TestIndexClear(t *testing.T) {
	x, err := New(zap.NewNop(), 100, 0.01)
	require.NoError(t, err)
	defer x.Close()

	require.NoError(t, x.Add([]byte("192.168.0.1")))
	require.NoError(t, x.Clear())

	assert.False(t, x.Contains([]byte("192.168.0.1")))
	assert.Zero(t, x.ItemCount())

	// Cleared index keeps working with the same parameters.
	require.NoError(t, x.Add([]byte("192.168.0.2")))
	assert.True(t, x.Contains([]byte("192.168.0.2")))
	assert.Equal(t, uint64(1), x.ItemCount())
}

func TestIndexStoreLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfcapd.202608251200.bfi")

	x, err := New(zap.NewNop(), 1000, 0.01)
	require.NoError(t, err)
	defer x.Close()

	addrs := [][]byte{
		[]byte("10.0.0.1"),
		[]byte("10.0.0.2"),
		{0xC0, 0xA8, 0x00, 0x01},                   // 192.168.0.1 raw v4
		append(make([]byte, 12), 0xC0, 0xA8, 0, 2), // v4-in-16-byte form
	}
	for _, addr := range addrs {
		require.NoError(t, x.Add(addr))
	}
	require.NoError(t, x.Store(path))
	assert.Equal(t, path, x.Filename())

	loaded, err := Load(zap.NewNop(), path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, path, loaded.Filename())
	assert.Equal(t, x.ItemCount(), loaded.ItemCount())
	for _, addr := range addrs {
		assert.True(t, loaded.Contains(addr))
	}
	assert.False(t, loaded.Contains([]byte("10.99.99.99")))
}

func TestIndexStoreUsesSetFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "named.bfi")

	x, err := New(zap.NewNop(), 100, 0.01)
	require.NoError(t, err)
	defer x.Close()

	require.Error(t, x.Store(""), "no filename set and none given")

	x.SetFilename(path)
	require.NoError(t, x.Add([]byte("10.0.0.1")))
	require.NoError(t, x.Store(""))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestIndexLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(zap.NewNop(), filepath.Join(dir, "missing.bfi"))
		assert.Error(t, err)
	})

	t.Run("foreign file", func(t *testing.T) {
		path := filepath.Join(dir, "foreign.bfi")
		require.NoError(t, os.WriteFile(path, []byte("plainly not an index"), 0644))

		_, err := Load(zap.NewNop(), path)
		assert.ErrorIs(t, err, bloom.ErrBadMagic)
	})

	t.Run("truncated file", func(t *testing.T) {
		full := filepath.Join(dir, "full.bfi")
		x, err := New(zap.NewNop(), 100, 0.01)
		require.NoError(t, err)
		defer x.Close()
		require.NoError(t, x.Add([]byte("10.0.0.1")))
		require.NoError(t, x.Store(full))

		data, err := os.ReadFile(full)
		require.NoError(t, err)
		cut := filepath.Join(dir, "cut.bfi")
		require.NoError(t, os.WriteFile(cut, data[:len(data)/2], 0644))

		_, err = Load(zap.NewNop(), cut)
		assert.ErrorIs(t, err, bloom.ErrTruncated)
	})
}

func TestIndexClosed(t *testing.T) {
	x, err := New(zap.NewNop(), 100, 0.01)
	require.NoError(t, err)
	require.NoError(t, x.Close())

	assert.ErrorIs(t, x.Add([]byte("10.0.0.1")), ErrClosed)
	assert.ErrorIs(t, x.Clear(), ErrClosed)
	assert.ErrorIs(t, x.Store("anywhere"), ErrClosed)
	assert.False(t, x.Contains([]byte("10.0.0.1")))
	assert.Zero(t, x.ItemCount())
}

func TestRegisterMetrics(t *testing.T) {
	// Fresh registry per test process slice; double registration would panic.
	RegisterMetrics(prometheus.NewRegistry())
}
