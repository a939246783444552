//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Bus
package udisks

import (
	"fmt"
	"github.com/godbus/dbus/v5"
)

const (
	udisksService = "org.freedesktop.UDisks2"
	udisksRoot    = dbus.ObjectPath("/org/freedesktop/UDisks2")

	getManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	filesystemUnmount = "org.freedesktop.UDisks2.Filesystem.Unmount"
)

// ManagedObjects maps object paths to their interfaces and properties.
type ManagedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Bus is the part of the UDisks2 D-Bus API the backend uses.
type Bus interface {
	ManagedObjects() (ManagedObjects, error)
	Unmount(block dbus.ObjectPath) error
	Close() error
}

type Dialer func() (Bus, error)

type systemBus struct {
	conn *dbus.Conn
}

// DialSystemBus opens a private connection to the system bus.
func DialSystemBus() (Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &systemBus{conn: conn}, nil
}

func (b *systemBus) ManagedObjects() (ManagedObjects, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := b.conn.Object(udisksService, udisksRoot).Call(getManagedObjects, 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("failed to get udisks objects: %w", err)
	}
	return ManagedObjects(objects), nil
}

func (b *systemBus) Unmount(block dbus.ObjectPath) error {
	options := map[string]dbus.Variant{}
	return b.conn.Object(udisksService, block).Call(filesystemUnmount, 0, options).Err
}

func (b *systemBus) Close() error {
	return b.conn.Close()
}
