// Package capacity determines the native sector size and the 512-byte
// sector count of a backing store.
//
// Block devices are asked directly through a per-OS query. Anything the
// query rejects (regular files, mostly) is measured by seeking to its end.
package capacity

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

const unit = 512

var (
	// ErrNotFound means the path is not a usable backing store.
	ErrNotFound = errors.New("backing store not found")
	// ErrUnsupportedSectorSize means the native sector size neither
	// divides nor is a multiple of 512.
	ErrUnsupportedSectorSize = errors.New("unsupported native sector size")
	// errNoQuery is returned by platforms without a block-device query.
	errNoQuery = errors.New("device geometry query not supported")
)

// Geometry describes a backing store. SectorSize is the native size;
// SectorCount always counts 512-byte sectors.
type Geometry struct {
	SectorSize  uint32
	SectorCount uint64
}

// Bytes returns the capacity covered by SectorCount.
func (g Geometry) Bytes() int64 {
	return int64(g.SectorCount) * unit
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d sectors of 512B (native %dB)", g.SectorCount, g.SectorSize)
}

// Query asks the platform for the native sector size and native sector
// count of an open handle.
type Query func(f *os.File) (sectorSize uint32, sectorCount uint64, err error)

// Prober runs the capacity probe. The zero value uses the platform query.
type Prober struct {
	Query  Query
	Logger *zap.Logger
}

// Probe runs the default prober.
func Probe(path string) (Geometry, error) {
	return (&Prober{}).Probe(path)
}

// Probe opens path read-only and returns its normalized geometry.
func (p *Prober) Probe(path string) (Geometry, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	query := p.Query
	if query == nil {
		query = queryDevice
	}

	f, err := os.Open(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	defer f.Close()

	size, count, err := query(f)
	if err != nil {
		log.Debug("device query failed, measuring by seek", zap.String("path", path), zap.Error(err))
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return Geometry{}, fmt.Errorf("%w: %s: measure: %w", ErrNotFound, path, err)
		}
		return Geometry{SectorSize: unit, SectorCount: uint64(end) / unit}, nil
	}

	n, err := Normalize(size, count)
	if err != nil {
		return Geometry{}, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("device geometry", zap.String("path", path), zap.Uint32("native_sector_size", size), zap.Uint64("native_sector_count", count), zap.Uint64("sectors", n))
	return Geometry{SectorSize: size, SectorCount: n}, nil
}

// Normalize converts a native sector count to 512-byte sectors.
func Normalize(nativeSize uint32, nativeCount uint64) (uint64, error) {
	switch {
	case nativeSize == unit:
		return nativeCount, nil
	case nativeSize > unit && nativeSize%unit == 0:
		return nativeCount * uint64(nativeSize/unit), nil
	case nativeSize > 0 && nativeSize < unit && unit%nativeSize == 0:
		return nativeCount / uint64(unit/nativeSize), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedSectorSize, nativeSize)
}
