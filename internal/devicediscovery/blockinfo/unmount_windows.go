//go:build windows

package blockinfo

import (
	"fmt"
	"golang.org/x/sys/windows"
	"strings"
)

const (
	fsctlLockVolume     = 0x00090018
	fsctlDismountVolume = 0x00090020
)

// lockVolume locks and dismounts a drive letter volume such as "E:". The volume
// stays offline until release closes the handle.
func lockVolume(mountpoint string) (func() error, error) {
	path, err := windows.UTF16PtrFromString(`\\.\` + strings.TrimSuffix(mountpoint, `\`))
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(path,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0)
	if err != nil {
		return nil, fmt.Errorf("unable to open volume %v: %w", mountpoint, err)
	}

	var returned uint32
	if err := windows.DeviceIoControl(handle, fsctlLockVolume, nil, 0, nil, 0, &returned, nil); err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("unable to lock volume %v: %w", mountpoint, err)
	}
	if err := windows.DeviceIoControl(handle, fsctlDismountVolume, nil, 0, nil, 0, &returned, nil); err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("unable to dismount volume %v: %w", mountpoint, err)
	}
	return func() error {
		return windows.CloseHandle(handle)
	}, nil
}

// unmountVolume flushes and dismounts the volume. Windows mounts it again on the
// next access, so writers must hold it with LockVolumes.
func unmountVolume(mountpoint string) error {
	release, err := lockVolume(mountpoint)
	if err != nil {
		return err
	}
	return release()
}
