package main

import "strings"

// coversDevice reports whether the mounted source src is dev itself or a
// partition of dev (sdb1 of sdb, disk2s1 of disk2, nvme0n1p1 of nvme0n1).
func coversDevice(src, dev string) bool {
	if src == dev {
		return true
	}
	if dev == "" || !strings.HasPrefix(src, dev) {
		return false
	}
	rest := src[len(dev):]
	// after a trailing digit a separator is needed: disk2s1, not disk21
	if last := dev[len(dev)-1]; last >= '0' && last <= '9' {
		if rest[0] != 'p' && rest[0] != 's' {
			return false
		}
		rest = rest[1:]
	}
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
