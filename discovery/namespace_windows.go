//go:build windows

package discovery

import "fmt"

// PlatformNamespace lists \\.\PhysicalDrive1 ... \\.\PhysicalDrive31.
// Drive 0 is the boot disk.
func PlatformNamespace() Namespace {
	var ns StaticNamespace
	for i := 1; i < 32; i++ {
		ns = append(ns, Candidate{Path: fmt.Sprintf(`\\.\PhysicalDrive%d`, i)})
	}
	return ns
}
