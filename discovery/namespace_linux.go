//go:build linux

package discovery

import "fmt"

// PlatformNamespace lists /dev/sdb, /dev/hdb, /dev/sdc, /dev/hdc ... /dev/hdy.
// The first disk is skipped: it is almost always the system disk.
func PlatformNamespace() Namespace {
	var ns StaticNamespace
	for c := 'b'; c < 'z'; c++ {
		ns = append(ns,
			Candidate{Path: fmt.Sprintf("/dev/sd%c", c)},
			Candidate{Path: fmt.Sprintf("/dev/hd%c", c)},
		)
	}
	return ns
}
