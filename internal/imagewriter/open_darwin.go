//go:build darwin

package imagewriter

import (
	"golang.org/x/sys/unix"
	"os"
)

func openTarget(path string) (Target, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, &os.PathError{Op: "flock", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
