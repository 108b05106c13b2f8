//go:build darwin

package capacity

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	dkiocGetBlockSize  = 0x40046418 // _IOR('d', 24, uint32)
	dkiocGetBlockCount = 0x40086419 // _IOR('d', 25, uint64)
)

func queryDevice(f *os.File) (uint32, uint64, error) {
	var blockSize uint32
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), dkiocGetBlockSize, uintptr(unsafe.Pointer(&blockSize)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("DKIOCGETBLOCKSIZE: %w", errno)
	}

	var blockCount uint64
	_, _, errno = unix.Syscall(unix.SYS_IOCTL, f.Fd(), dkiocGetBlockCount, uintptr(unsafe.Pointer(&blockCount)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("DKIOCGETBLOCKCOUNT: %w", errno)
	}
	return blockSize, blockCount, nil
}
