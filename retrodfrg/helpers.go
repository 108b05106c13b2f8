package retrodfrg

import "math"

// SectorReader is the read half of a 512-byte sector store.
type SectorReader interface {
	ReadSectors(lba, count uint32, buf []byte) error
}

// ScanSpan reads count sectors starting at lba, chunk sectors at a time, and
// reports every range to mark. A failing chunk is retried one sector at a
// time so that mark receives the exact bad sectors. u may be nil; otherwise
// the scan stops with ErrInterrupted once the user asks.
func ScanSpan(r SectorReader, lba, count uint64, chunk uint32, u *UI, mark func(lba uint64, n uint32, err error)) error {
	if chunk == 0 {
		chunk = 1
	}
	buf := make([]byte, int(chunk)*512)
	end := lba + count
	if end > math.MaxUint32+1 {
		end = math.MaxUint32 + 1
	}

	for cur := lba; cur < end; {
		if u != nil && u.IsStopped() {
			return ErrInterrupted
		}
		n := chunk
		if left := end - cur; left < uint64(n) {
			n = uint32(left)
		}
		if err := r.ReadSectors(uint32(cur), n, buf); err == nil {
			mark(cur, n, nil)
		} else {
			for i := uint32(0); i < n; i++ {
				mark(cur+uint64(i), 1, r.ReadSectors(uint32(cur)+i, 1, buf))
			}
		}
		cur += uint64(n)
	}
	return nil
}
