//go:build !windows

package device

import "os"

// openReadWrite opens an existing store without creating or truncating it.
func openReadWrite(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
