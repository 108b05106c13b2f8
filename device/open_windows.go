//go:build windows

package device

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

const fileFlagWriteThrough = 0x80000000

// openReadWrite opens an existing store for raw read-write access.
// Sharing stays enabled so probing and listing tools keep working.
func openReadWrite(path string) (*os.File, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		fileFlagWriteThrough,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w (administrator rights are needed for physical drives)", path, err)
	}

	file := os.NewFile(uintptr(handle), path)
	if file == nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("cannot create file from handle")
	}
	return file, nil
}
