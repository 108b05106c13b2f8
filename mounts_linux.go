//go:build linux

package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// mountPointOf returns where dev, or a partition of it, is mounted.
func mountPointOf(dev string) string {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return ""
	}
	defer f.Close()
	return findMount(bufio.NewScanner(f), dev)
}

func findMount(sc *bufio.Scanner, dev string) string {
	if real, err := filepath.EvalSymlinks(dev); err == nil {
		dev = real
	}
	for sc.Scan() {
		// format: <src> <target> <fstype> <opts> ...
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/") {
			continue
		}
		if coversDevice(fields[0], dev) {
			return fields[1]
		}
	}
	return ""
}
