package capacity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempImage(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

func fixedQuery(size uint32, count uint64) Query {
	return func(*os.File) (uint32, uint64, error) {
		return size, count, nil
	}
}

func TestProbe_RegularFile(t *testing.T) {
	for _, size := range []int64{0, 511, 512, 10*512 + 100, 4 << 20} {
		g, err := Probe(tempImage(t, size))
		require.NoError(t, err)
		assert.Equal(t, uint32(512), g.SectorSize)
		assert.Equal(t, uint64(size/512), g.SectorCount, "size=%d", size)
	}
}

func TestProbe_NativeSectorSizes(t *testing.T) {
	path := tempImage(t, 4096)

	cases := []struct {
		size  uint32
		count uint64
		want  uint64
	}{
		{512, 1000, 1000},
		{4096, 1000, 8000},
		{2048, 3, 12},
		{256, 1001, 500},
		{128, 8, 2},
	}
	for _, c := range cases {
		p := &Prober{Query: fixedQuery(c.size, c.count)}
		g, err := p.Probe(path)
		require.NoError(t, err)
		assert.Equal(t, c.size, g.SectorSize)
		assert.Equal(t, c.want, g.SectorCount, "native %d x %d", c.size, c.count)
	}
}

func TestProbe_QueryFailureFallsBack(t *testing.T) {
	path := tempImage(t, 3*512+1)
	p := &Prober{Query: func(*os.File) (uint32, uint64, error) {
		return 0, 0, errors.New("inappropriate ioctl for device")
	}}

	g, err := p.Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Geometry{SectorSize: 512, SectorCount: 3}, g)
	assert.Equal(t, int64(3*512), g.Bytes())
}

func TestProbe_Missing(t *testing.T) {
	called := false
	p := &Prober{Query: func(*os.File) (uint32, uint64, error) {
		called = true
		return 512, 1, nil
	}}

	_, err := p.Probe(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, called)
}

func TestProbe_UnsupportedSectorSize(t *testing.T) {
	p := &Prober{Query: fixedQuery(520, 100)}

	_, err := p.Probe(tempImage(t, 512))
	assert.ErrorIs(t, err, ErrUnsupportedSectorSize)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNormalize(t *testing.T) {
	n, err := Normalize(4096, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(56), n)

	for _, bad := range []uint32{0, 520, 1000, 3} {
		_, err := Normalize(bad, 10)
		assert.ErrorIs(t, err, ErrUnsupportedSectorSize, "size=%d", bad)
	}
}
