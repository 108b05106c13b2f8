// Package sector implements the sector-addressed transport used by the
// filesystem engine. All addressing is in 512-byte units.
package sector

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// SectorSize is the transport unit in bytes.
const SectorSize = 512

// ErrIO is matched by every SeekError and TransferError.
var ErrIO = errors.New("sector i/o error")

// Store is the only channel through which the filesystem engine touches storage.
type Store interface {
	ReadSectors(lba, count uint32, buf []byte) error
	WriteSectors(lba, count uint32, buf []byte) error
}

// SeekError is returned when the backing store cannot be positioned.
type SeekError struct {
	Op     string
	LBA    uint32
	Count  uint32
	Offset int64
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("%s: seek to sector %d (offset %d): %v", e.Op, e.LBA, e.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

func (e *SeekError) Is(target error) bool { return target == ErrIO }

// TransferError is returned when a read or write moves fewer bytes than requested.
type TransferError struct {
	Op    string
	LBA   uint32
	Count uint32
	Want  int
	Got   int
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %d sectors at %d: transferred %d of %d bytes: %v", e.Op, e.Count, e.LBA, e.Got, e.Want, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool { return target == ErrIO }

// File adapts a positioned stream (a device node or a regular file) to Store.
// It is not safe for concurrent use: every call moves the shared cursor.
type File struct {
	rws     io.ReadWriteSeeker
	baseLBA uint64
	log     *zap.Logger
}

var _ Store = (*File)(nil)

// NewFile binds rws as a Store. baseLBA is added to every request.
func NewFile(rws io.ReadWriteSeeker, baseLBA uint64) *File {
	return &File{rws: rws, baseLBA: baseLBA, log: zap.NewNop()}
}

// WithLogger sets the diagnostic side channel.
func (f *File) WithLogger(l *zap.Logger) *File {
	if l != nil {
		f.log = l
	}
	return f
}

func (f *File) seek(op string, lba, count uint32) error {
	off := int64((f.baseLBA + uint64(lba)) * SectorSize)
	if _, err := f.rws.Seek(off, io.SeekStart); err != nil {
		return &SeekError{Op: op, LBA: lba, Count: count, Offset: off, Err: err}
	}
	return nil
}

func span(op string, lba, count uint32, buf []byte) (int, error) {
	n := int(count) * SectorSize
	if len(buf) < n {
		return 0, &TransferError{Op: op, LBA: lba, Count: count, Want: n, Err: io.ErrShortBuffer}
	}
	return n, nil
}

// ReadSectors fills buf[:count*512] from sector lba onward.
func (f *File) ReadSectors(lba, count uint32, buf []byte) error {
	n, err := span("read", lba, count, buf)
	if err != nil {
		return err
	}
	if err := f.seek("read", lba, count); err != nil {
		f.log.Error("error seeking in disc partition", zap.Uint32("lba", lba), zap.Uint32("count", count), zap.Error(err))
		return err
	}
	got, err := io.ReadFull(f.rws, buf[:n])
	if err != nil {
		f.log.Error("error reading disc", zap.Uint32("lba", lba), zap.Uint32("count", count), zap.Int("got", got), zap.Error(err))
		return &TransferError{Op: "read", LBA: lba, Count: count, Want: n, Got: got, Err: err}
	}
	return nil
}

// WriteSectors writes buf[:count*512] starting at sector lba. A short write
// is reported, not rolled back.
func (f *File) WriteSectors(lba, count uint32, buf []byte) error {
	n, err := span("write", lba, count, buf)
	if err != nil {
		return err
	}
	if err := f.seek("write", lba, count); err != nil {
		f.log.Error("error seeking in disc file", zap.Uint32("lba", lba), zap.Uint32("count", count), zap.Error(err))
		return err
	}
	got, err := f.rws.Write(buf[:n])
	if err == nil && got != n {
		err = io.ErrShortWrite
	}
	if err != nil {
		f.log.Error("error writing disc", zap.Uint32("lba", lba), zap.Uint32("count", count), zap.Int("got", got), zap.Error(err))
		return &TransferError{Op: "write", LBA: lba, Count: count, Want: n, Got: got, Err: err}
	}
	return nil
}
