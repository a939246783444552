//go:build linux || darwin || freebsd || netbsd || openbsd

package blockinfo

import "golang.org/x/sys/unix"

// Volumes here stay unmounted until someone mounts them again.
var lockVolume VolumeLock

func unmountVolume(mountpoint string) error {
	return unix.Unmount(mountpoint, 0)
}
