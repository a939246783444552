//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Backend
package devicediscovery

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"sync"
	"sync/atomic"
)

var (
	ErrDiscoveryUnavailable = device.ErrDiscoveryUnavailable
	ErrUnmountFailed        = device.ErrUnmountFailed
	ErrDeviceNotFound       = device.ErrNotFound
	ErrLockUnsupported      = device.ErrLockUnsupported
)

// Backend is implemented once per host device model.
type Backend interface {
	Name() string
	Enumerate(includeNonRemovable bool) ([]*device.Device, error)
	IsMounted(identity string) (bool, error)
	Unmount(identity string) error
}

// VolumeLocker is implemented by backends whose host remounts a volume as soon as
// anything touches it, so an unmount only holds while the volume stays locked.
type VolumeLocker interface {
	LockVolumes(identity string) (release func() error, err error)
}

type Config struct {
	Backend Backend
	Logger  *logrus.Logger
}

type Discovery struct {
	backend Backend
	logger  *logrus.Logger

	scanMu   sync.Mutex
	snapshot atomic.Value
}

func New(config *Config) *Discovery {
	d := &Discovery{
		backend: config.Backend,
		logger:  config.Logger,
	}
	d.snapshot.Store([]*device.Device{})
	return d
}

func (d *Discovery) BackendName() string {
	return d.backend.Name()
}

// Scan asks the backend for the devices currently visible and replaces the stored
// snapshot. Without includeNonRemovable only removable devices are kept.
func (d *Discovery) Scan(includeNonRemovable bool) ([]*device.Device, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	devices, err := d.enumerate(includeNonRemovable)
	if err != nil {
		return nil, err
	}
	d.snapshot.Store(devices)
	return d.Devices(), nil
}

// Lookup enumerates afresh and returns the device at path, leaving the stored
// snapshot untouched.
func (d *Discovery) Lookup(path string, includeNonRemovable bool) (*device.Device, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	devices, err := d.enumerate(includeNonRemovable)
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Path() == path {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, path)
}

func (d *Discovery) enumerate(includeNonRemovable bool) ([]*device.Device, error) {
	logger := d.logger.WithFields(logrus.Fields{
		"backend": d.backend.Name(),
		"unsafe":  includeNonRemovable,
	})
	logger.Debug("scanning for devices")

	found, err := d.backend.Enumerate(includeNonRemovable)
	if err != nil {
		if errors.Is(err, ErrDiscoveryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%v %w: %v", d.backend.Name(), ErrDiscoveryUnavailable, err)
	}

	devices := make([]*device.Device, 0, len(found))
	for _, dev := range found {
		if dev == nil || dev.Path() == "" {
			logger.Debugf("skipping device without a device node: %v", dev)
			continue
		}
		if !includeNonRemovable && !dev.Removable() {
			logger.Debugf("skipping non-removable device %v", dev.Path())
			continue
		}
		devices = append(devices, dev)
	}
	logger.Debugf("found %v device(s)", len(devices))
	return devices, nil
}

// Devices returns a copy of the most recent snapshot.
func (d *Discovery) Devices() []*device.Device {
	current := d.snapshot.Load().([]*device.Device)
	devices := make([]*device.Device, len(current))
	copy(devices, current)
	return devices
}

// Find looks up a device node in the most recent snapshot.
func (d *Discovery) Find(path string) (*device.Device, error) {
	for _, dev := range d.snapshot.Load().([]*device.Device) {
		if dev.Path() == path {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, path)
}

func (d *Discovery) IsMounted(identity string) (bool, error) {
	mounted, err := d.backend.IsMounted(identity)
	if err != nil {
		return false, fmt.Errorf("%v unable to check mount state of %v: %w", d.backend.Name(), identity, err)
	}
	d.logger.WithField("identity", identity).Debugf("mounted=%v", mounted)
	return mounted, nil
}

// Unmount unmounts every volume of the device. Any single failure is a failure of
// the whole call.
func (d *Discovery) Unmount(identity string) error {
	d.logger.WithField("identity", identity).Info("unmounting device volumes")
	err := d.backend.Unmount(identity)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnmountFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnmountFailed, err)
}

// LockVolumes takes every volume of the device offline until release is called.
// Backends that cannot hold volumes return ErrLockUnsupported, and the mount
// table stays authoritative for them.
func (d *Discovery) LockVolumes(identity string) (func() error, error) {
	locker, ok := d.backend.(VolumeLocker)
	if !ok {
		return nil, ErrLockUnsupported
	}
	d.logger.WithField("identity", identity).Info("locking device volumes")
	release, err := locker.LockVolumes(identity)
	if err != nil {
		if errors.Is(err, ErrLockUnsupported) || errors.Is(err, ErrUnmountFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnmountFailed, err)
	}
	return release, nil
}
