//go:build windows

package capacity

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

const ioctlDiskGetDriveGeometryEx = 0x700A0

// diskGeometryEx mirrors DISK_GEOMETRY_EX without the trailing partition data.
type diskGeometryEx struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
	DiskSize          int64
	Data              [8]byte
}

func queryDevice(f *os.File) (uint32, uint64, error) {
	var g diskGeometryEx
	var returned uint32
	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetDriveGeometryEx,
		nil, 0,
		(*byte)(unsafe.Pointer(&g)), uint32(unsafe.Sizeof(g)),
		&returned,
		nil,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("IOCTL_DISK_GET_DRIVE_GEOMETRY_EX: %w", err)
	}
	if g.BytesPerSector == 0 {
		return 0, 0, fmt.Errorf("IOCTL_DISK_GET_DRIVE_GEOMETRY_EX: zero sector size")
	}
	return g.BytesPerSector, uint64(g.DiskSize) / uint64(g.BytesPerSector), nil
}
