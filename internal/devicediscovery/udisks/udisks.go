package udisks

import (
	"errors"
	"fmt"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"sort"
	"strings"
)

const (
	driveInterface      = "org.freedesktop.UDisks2.Drive"
	blockInterface      = "org.freedesktop.UDisks2.Block"
	partitionInterface  = "org.freedesktop.UDisks2.Partition"
	filesystemInterface = "org.freedesktop.UDisks2.Filesystem"

	usbBus = "usb"
)

type Config struct {
	Dial   Dialer
	Logger *logrus.Logger
}

// Backend discovers drives through UDisks2 on the system bus. Device identities
// are UDisks2 drive object paths.
type Backend struct {
	dial   Dialer
	logger *logrus.Logger
}

func New(config *Config) *Backend {
	dial := config.Dial
	if dial == nil {
		dial = DialSystemBus
	}
	return &Backend{
		dial:   dial,
		logger: config.Logger,
	}
}

func (b *Backend) Name() string {
	return "udisks"
}

func (b *Backend) Enumerate(includeNonRemovable bool) ([]*device.Device, error) {
	objects, err := b.managedObjects()
	if err != nil {
		return nil, err
	}

	var devices []*device.Device
	for _, drivePath := range sortedPaths(objects) {
		props, ok := objects[drivePath][driveInterface]
		if !ok {
			continue
		}
		logger := b.logger.WithField("drive", drivePath)

		node, blockSize := wholeDisk(objects, drivePath)
		if node == "" {
			logger.Debug("skipping drive without a block device")
			continue
		}

		removable := boolProperty(props, "Removable") || boolProperty(props, "MediaRemovable")
		bus := stringProperty(props, "ConnectionBus")
		if !includeNonRemovable && !(bus == usbBus && removable) {
			logger.Debugf("skipping %v: bus=%v removable=%v", node, bus, removable)
			continue
		}

		size := uint64Property(props, "Size")
		if size == 0 {
			size = blockSize
		}
		devices = append(devices, device.New(device.Info{
			Path:      node,
			Identity:  string(drivePath),
			Vendor:    stringProperty(props, "Vendor"),
			Model:     stringProperty(props, "Model"),
			SizeBytes: size,
			Removable: removable,
		}))
	}
	return devices, nil
}

func (b *Backend) IsMounted(identity string) (bool, error) {
	objects, err := b.managedObjects()
	if err != nil {
		return false, err
	}
	if _, ok := objects[dbus.ObjectPath(identity)]; !ok {
		return false, fmt.Errorf("%w: %v", device.ErrNotFound, identity)
	}
	return len(mountedFilesystems(objects, identity)) > 0, nil
}

func (b *Backend) Unmount(identity string) error {
	bus, err := b.dial()
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, err)
	}
	defer bus.Close()

	objects, err := bus.ManagedObjects()
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, err)
	}

	var errs []error
	for _, block := range mountedFilesystems(objects, identity) {
		b.logger.WithField("block", block).Debug("unmounting filesystem")
		if err := bus.Unmount(block); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", block, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, errors.Join(errs...))
	}
	return nil
}

func (b *Backend) managedObjects() (ManagedObjects, error) {
	bus, err := b.dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrDiscoveryUnavailable, err)
	}
	defer bus.Close()

	objects, err := bus.ManagedObjects()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrDiscoveryUnavailable, err)
	}
	return objects, nil
}

// wholeDisk finds the block device of drivePath that is not a partition.
func wholeDisk(objects ManagedObjects, drivePath dbus.ObjectPath) (string, uint64) {
	for _, path := range sortedPaths(objects) {
		ifaces := objects[path]
		props, ok := ifaces[blockInterface]
		if !ok || objectPathProperty(props, "Drive") != drivePath {
			continue
		}
		if _, isPartition := ifaces[partitionInterface]; isPartition {
			continue
		}
		node := bytesProperty(props, "PreferredDevice")
		if node == "" {
			node = bytesProperty(props, "Device")
		}
		return node, uint64Property(props, "Size")
	}
	return "", 0
}

// mountedFilesystems lists every mounted filesystem block belonging to the drive.
func mountedFilesystems(objects ManagedObjects, identity string) []dbus.ObjectPath {
	var mounted []dbus.ObjectPath
	for _, path := range sortedPaths(objects) {
		ifaces := objects[path]
		props, ok := ifaces[blockInterface]
		if !ok || string(objectPathProperty(props, "Drive")) != identity {
			continue
		}
		fs, ok := ifaces[filesystemInterface]
		if !ok {
			continue
		}
		if points, ok := fs["MountPoints"].Value().([][]byte); ok && len(points) > 0 {
			mounted = append(mounted, path)
		}
	}
	return mounted
}

func sortedPaths(objects ManagedObjects) []dbus.ObjectPath {
	paths := make([]dbus.ObjectPath, 0, len(objects))
	for path := range objects {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

func stringProperty(props map[string]dbus.Variant, name string) string {
	s, _ := props[name].Value().(string)
	return strings.TrimSpace(s)
}

func boolProperty(props map[string]dbus.Variant, name string) bool {
	v, _ := props[name].Value().(bool)
	return v
}

func uint64Property(props map[string]dbus.Variant, name string) uint64 {
	v, _ := props[name].Value().(uint64)
	return v
}

func objectPathProperty(props map[string]dbus.Variant, name string) dbus.ObjectPath {
	v, _ := props[name].Value().(dbus.ObjectPath)
	return v
}

// bytesProperty decodes a NUL terminated byte array property.
func bytesProperty(props map[string]dbus.Variant, name string) string {
	v, _ := props[name].Value().([]byte)
	return strings.TrimRight(string(v), "\x00")
}
