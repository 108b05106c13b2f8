//go:build linux

package capacity

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// queryDevice asks for the logical sector size and derives the native count
// from the byte size. BLKGETSIZE would report 512-byte units already.
func queryDevice(f *os.File) (uint32, uint64, error) {
	fd := int(f.Fd())
	ssz, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		return 0, 0, fmt.Errorf("BLKSSZGET: %w", err)
	}
	if ssz <= 0 {
		return 0, 0, fmt.Errorf("BLKSSZGET: bad sector size %d", ssz)
	}

	var sizeBytes uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sizeBytes)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("BLKGETSIZE64: %w", errno)
	}
	return uint32(ssz), sizeBytes / uint64(ssz), nil
}
