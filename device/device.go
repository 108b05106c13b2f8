// Package device opens backing stores (whole disks, partitions, or image
// files standing in for either) and binds them to the sector transport.
package device

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"wbfsdev/capacity"
	"wbfsdev/sector"
)

var (
	// ErrNotFound is matched by an OpenError whose path is not a usable store.
	ErrNotFound = errors.New("not found")
	// ErrIO is matched by an OpenError whose store exists but could not be
	// opened for read-write access.
	ErrIO = errors.New("i/o error")
)

// Kind tells how a store was opened.
type Kind int

const (
	KindDisk Kind = iota
	KindPartition
)

func (k Kind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindPartition:
		return "partition"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrorKind classifies an OpenError.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	IO
)

// OpenError reports a failed open attempt.
type OpenError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("open %s: not a usable backing store: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("open %s: %v", e.Path, e.Err)
	}
}

func (e *OpenError) Unwrap() error { return e.Err }

func (e *OpenError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == NotFound
	case ErrIO:
		return e.Kind == IO
	}
	return false
}

// Disk is an open backing store. It owns its file until Close.
// Not safe for concurrent use.
type Disk struct {
	sector.Store

	Path     string
	Kind     Kind
	Geometry capacity.Geometry
	// PartitionLBA is the start of the partition relative to the opened
	// path. Partitions are opened through their own node, so it is 0.
	PartitionLBA uint64
	// Reset asks the filesystem engine to initialize rather than mount.
	Reset bool

	f *os.File
}

// Sync flushes the underlying file.
func (d *Disk) Sync() error {
	if d.f == nil {
		return os.ErrClosed
	}
	return d.f.Sync()
}

// Close releases the backing store.
func (d *Disk) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Opener probes and opens backing stores.
type Opener struct {
	Prober *capacity.Prober
	Logger *zap.Logger
}

// NewOpener returns an Opener using the platform capacity query.
func NewOpener(logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{
		Prober: &capacity.Prober{Logger: logger},
		Logger: logger,
	}
}

// OpenDisk opens path as a whole disk.
func OpenDisk(path string, reset bool) (*Disk, error) {
	return NewOpener(nil).OpenDisk(path, reset)
}

// OpenPartition opens path as a partition.
func OpenPartition(path string, reset bool) (*Disk, error) {
	return NewOpener(nil).OpenPartition(path, reset)
}

func (o *Opener) OpenDisk(path string, reset bool) (*Disk, error) {
	return o.open(path, KindDisk, reset)
}

func (o *Opener) OpenPartition(path string, reset bool) (*Disk, error) {
	return o.open(path, KindPartition, reset)
}

func (o *Opener) open(path string, kind Kind, reset bool) (*Disk, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prober := o.Prober
	if prober == nil {
		prober = &capacity.Prober{Logger: log}
	}

	g, err := prober.Probe(path)
	if err != nil {
		return nil, &OpenError{Kind: NotFound, Path: path, Err: err}
	}

	f, err := openReadWrite(path)
	if err != nil {
		log.Debug("cannot open for read-write", zap.String("path", path), zap.Error(err))
		return nil, &OpenError{Kind: IO, Path: path, Err: err}
	}

	log.Debug("opened backing store",
		zap.String("path", path),
		zap.Stringer("kind", kind),
		zap.Uint32("sector_size", g.SectorSize),
		zap.Uint64("sectors", g.SectorCount),
		zap.Bool("reset", reset),
	)

	return &Disk{
		Store:    sector.NewFile(f, 0).WithLogger(log),
		Path:     path,
		Kind:     kind,
		Geometry: g,
		Reset:    reset,
		f:        f,
	}, nil
}
