package device

import "errors"

var (
	ErrDiscoveryUnavailable = errors.New("device discovery service unavailable")
	ErrUnmountFailed        = errors.New("failed to unmount device")
	ErrNotFound             = errors.New("device not found")
	ErrLockUnsupported      = errors.New("volume locking not supported")
)
