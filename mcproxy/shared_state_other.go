//go:build !linux

package mcproxy

// NewSharedState builds the best SharedProxyState available on this
// platform. Off Linux there is no mmap-backed implementation, so this
// falls back to the heap-backed default.
func NewSharedState(addrs []string) (SharedProxyState, error) {
	return newMemSharedState(), nil
}
