//go:build !linux && !darwin && !windows

package capacity

import "os"

func queryDevice(*os.File) (uint32, uint64, error) {
	return 0, 0, errNoQuery
}
