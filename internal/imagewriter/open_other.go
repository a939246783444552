//go:build !(linux || darwin || windows)

package imagewriter

import "os"

func openTarget(path string) (Target, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
