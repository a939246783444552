//go:build linux

package imagewriter

import (
	"golang.org/x/sys/unix"
	"os"
)

// openTarget opens a block device exclusively. The kernel refuses O_EXCL on a
// block device that has a mounted filesystem with EBUSY.
func openTarget(path string) (Target, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_SYNC|unix.O_EXCL|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
