//go:build windows

package imagewriter

import (
	"golang.org/x/sys/windows"
	"os"
)

// openTarget opens a physical drive for write-through access. Its volumes must
// already be locked and dismounted by the caller, which is what keeps other
// writers off the disk.
func openTarget(path string) (Target, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(name,
		windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_WRITE_THROUGH,
		0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(handle), path), nil
}
