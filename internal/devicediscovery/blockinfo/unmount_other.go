//go:build !(linux || darwin || freebsd || netbsd || openbsd || windows)

package blockinfo

import (
	"fmt"
	"runtime"
)

var lockVolume VolumeLock

func unmountVolume(mountpoint string) error {
	return fmt.Errorf("unmounting %v is not supported on %v", mountpoint, runtime.GOOS)
}
