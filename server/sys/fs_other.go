//go:build !linux && !darwin && !freebsd && !windows

package sys

import "errors"

func FreeSpace(dir string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
