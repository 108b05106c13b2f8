//go:build windows

package main

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const ioctlStorageGetDeviceNumber = 0x2D1080

type storageDeviceNumber struct {
	DeviceType      uint32
	DeviceNumber    uint32
	PartitionNumber uint32
}

// mountPointOf returns the first drive letter living on \\.\PhysicalDriveN.
func mountPointOf(dev string) string {
	var want uint32
	if _, err := fmt.Sscanf(strings.ToLower(dev), `\\.\physicaldrive%d`, &want); err != nil {
		return ""
	}
	for l := byte('A'); l <= byte('Z'); l++ {
		n, ok := deviceNumberOf(fmt.Sprintf(`\\.\%c:`, l))
		if ok && n == want {
			return fmt.Sprintf(`%c:\`, l)
		}
	}
	return ""
}

func deviceNumberOf(volume string) (uint32, bool) {
	p, err := windows.UTF16PtrFromString(volume)
	if err != nil {
		return 0, false
	}
	h, err := windows.CreateFile(
		p,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(h)

	var out storageDeviceNumber
	var returned uint32
	err = windows.DeviceIoControl(
		h,
		ioctlStorageGetDeviceNumber,
		nil, 0,
		(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)),
		&returned,
		nil,
	)
	if err != nil {
		return 0, false
	}
	return out.DeviceNumber, true
}
