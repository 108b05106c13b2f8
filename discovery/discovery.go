// Package discovery picks the backing store to open: an explicit partition,
// then an explicit disk, then the first device node of the platform
// namespace that opens.
//
// Enumeration never happens for reset requests. Initializing a store that
// was guessed rather than named is not allowed.
package discovery

import (
	"errors"

	"go.uber.org/zap"

	"wbfsdev/device"
)

var (
	// ErrDiscoveryExhausted means no candidate of the namespace opened.
	ErrDiscoveryExhausted = errors.New("cannot find any wbfs partition (verify permissions)")
	// ErrResetNeedsTarget is returned for a reset request without a usable
	// partition path.
	ErrResetNeedsTarget = errors.New("reset requires an explicit partition")
)

// Request describes what to open. Empty paths are not given.
type Request struct {
	DiskPath      string
	PartitionPath string
	Reset         bool
}

// Opener opens a single store.
type Opener interface {
	OpenDisk(path string, reset bool) (*device.Disk, error)
	OpenPartition(path string, reset bool) (*device.Disk, error)
}

// Candidate is one device node of a namespace.
type Candidate struct {
	Path      string
	Partition bool
}

// Namespace lists candidates in the order they are tried.
type Namespace interface {
	Candidates() []Candidate
}

// StaticNamespace is a fixed, ordered candidate list.
type StaticNamespace []Candidate

func (s StaticNamespace) Candidates() []Candidate { return s }

// Discoverer runs the open state machine.
type Discoverer struct {
	Opener    Opener
	Namespace Namespace
	Logger    *zap.Logger
}

// New returns a Discoverer for this platform.
func New(logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		Opener:    device.NewOpener(logger),
		Namespace: PlatformNamespace(),
		Logger:    logger,
	}
}

// Discover runs the platform Discoverer.
func Discover(req Request) (*device.Disk, error) {
	return New(nil).Discover(req)
}

// Discover returns the opened store. A nil Disk always comes with an error.
func (d *Discoverer) Discover(req Request) (*device.Disk, error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var partErr error
	if req.PartitionPath != "" {
		disk, err := d.Opener.OpenPartition(req.PartitionPath, req.Reset)
		if err == nil {
			return disk, nil
		}
		log.Debug("partition did not open", zap.String("path", req.PartitionPath), zap.Error(err))
		partErr = err
	}

	if req.Reset {
		if partErr != nil {
			return nil, errors.Join(ErrResetNeedsTarget, partErr)
		}
		return nil, ErrResetNeedsTarget
	}

	if req.DiskPath != "" {
		return d.Opener.OpenDisk(req.DiskPath, false)
	}

	return d.enumerate(log)
}

func (d *Discoverer) enumerate(log *zap.Logger) (*device.Disk, error) {
	var candidates []Candidate
	if d.Namespace != nil {
		candidates = d.Namespace.Candidates()
	}
	for _, c := range candidates {
		var (
			disk *device.Disk
			err  error
		)
		if c.Partition {
			disk, err = d.Opener.OpenPartition(c.Path, false)
		} else {
			disk, err = d.Opener.OpenDisk(c.Path, false)
		}
		if err != nil {
			log.Debug("candidate skipped", zap.String("path", c.Path), zap.Error(err))
			continue
		}
		log.Info("using " + c.Path)
		return disk, nil
	}
	log.Error(ErrDiscoveryExhausted.Error(), zap.Int("candidates", len(candidates)))
	return nil, ErrDiscoveryExhausted
}
