package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type badReader struct {
	sectors uint64
	bad     map[uint64]bool
}

func (r *badReader) ReadSectors(lba, count uint32, _ []byte) error {
	for i := uint64(lba); i < uint64(lba)+uint64(count); i++ {
		if i >= r.sectors || r.bad[i] {
			return errors.New("medium error")
		}
	}
	return nil
}

func TestScanTracker_MapLines(t *testing.T) {
	st := newScanTracker(10)
	st.mark(0, 3, nil)
	st.mark(3, 1, errors.New("bad"))

	assert.Equal(t, []string{"███✗", "░░░░", "░░"}, st.mapLines(4, 5))
	assert.Equal(t, uint64(4), st.readCount())
	assert.Equal(t, uint64(1), st.badCount())
	assert.Equal(t, uint64(3), st.currentPos)
}

func TestScanTracker_MapScrollsToCurrent(t *testing.T) {
	st := newScanTracker(100)
	st.mark(0, 50, nil)

	lines := st.mapLines(5, 2)
	require.Len(t, lines, 2)
	// window ends at sector 49, every cell already read
	assert.Equal(t, []string{"█████", "█████"}, lines)

	st.mark(50, 50, nil)
	assert.Equal(t, []string{"█████", "█████"}, st.mapLines(5, 2))
	assert.Nil(t, newScanTracker(0).mapLines(5, 2))
}

func TestScanTracker_MarkClampsToTotal(t *testing.T) {
	st := newScanTracker(4)
	st.mark(2, 10, nil)
	assert.Equal(t, uint64(2), st.readCount())
	assert.Equal(t, uint64(3), st.currentPos)
}

func TestScanStore_ReportsBadSectors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := &badReader{sectors: 40, bad: map[uint64]bool{0: true, 21: true, 39: true}}

	st, err := scanStore(r, 40, 16, nil, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, uint64(40), st.readCount())
	assert.Equal(t, []uint64{0, 21, 39}, st.badSectors(10))
	assert.Equal(t, []uint64{0, 21}, st.badSectors(2))
	assert.Equal(t, 3, logs.FilterMessage("bad sector").Len())
}

func TestScanLimit(t *testing.T) {
	assert.Equal(t, uint64(100), scanLimit(100))
	assert.Equal(t, uint64(1<<32), scanLimit(1<<32))
	// 16 TB of 512-byte sectors
	assert.Equal(t, uint64(1<<32), scanLimit(31250000000))
}
