//go:build !linux && !darwin && !windows

package discovery

// PlatformNamespace is empty where no device naming convention is known.
func PlatformNamespace() Namespace {
	return StaticNamespace(nil)
}
