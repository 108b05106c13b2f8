//go:build darwin

package main

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// mountPointOf returns where dev, or a slice of it, is mounted.
// /dev/rdiskN is matched against the buffered /dev/diskN node.
func mountPointOf(dev string) string {
	dev = strings.Replace(filepath.Clean(dev), "/dev/rdisk", "/dev/disk", 1)
	for _, m := range listMountedDarwin() {
		if coversDevice(m.Device, dev) {
			return m.MountPoint
		}
	}
	return ""
}

func bytesToStringDarwin(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

type mountedVol struct {
	MountPoint string
	Device     string
}

func listMountedDarwin() []mountedVol {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil || n <= 0 {
		return nil
	}
	buf := make([]unix.Statfs_t, n)
	if _, err := unix.Getfsstat(buf, unix.MNT_NOWAIT); err != nil {
		return nil
	}
	out := make([]mountedVol, 0, len(buf))
	for _, st := range buf {
		out = append(out, mountedVol{
			MountPoint: filepath.Clean(bytesToStringDarwin(st.Mntonname[:])),
			Device:     bytesToStringDarwin(st.Mntfromname[:]),
		})
	}
	return out
}
