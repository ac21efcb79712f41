//go:build !unix

package api

import "errors"

// freeDiskBytes is only implemented on unix; other platforms are development only.
func freeDiskBytes(string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
