//go:build !windows

package pmip

import "os"

// POSIX opens never block concurrent writers or unlinks.
func openShared(path string) (*os.File, error) {
	return os.Open(path)
}
