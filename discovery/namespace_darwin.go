//go:build darwin

package discovery

import "fmt"

// PlatformNamespace lists the slices /dev/disk0s0 ... /dev/disk9s9,
// opened as partitions.
func PlatformNamespace() Namespace {
	var ns StaticNamespace
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			ns = append(ns, Candidate{Path: fmt.Sprintf("/dev/disk%ds%d", i, j), Partition: true})
		}
	}
	return ns
}
