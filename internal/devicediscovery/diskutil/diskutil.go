package diskutil

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"howett.net/plist"
	"os/exec"
	"strings"
)

const (
	diskutilExecutable = "diskutil"
	usbProtocol        = "USB"
)

// Runner executes a command and returns its standard output.
type Runner func(name string, args ...string) ([]byte, error)

type Config struct {
	Run    Runner
	Logger *logrus.Logger
}

// Backend discovers disks with diskutil. Device identities are whole-disk
// identifiers such as disk4.
type Backend struct {
	run    Runner
	logger *logrus.Logger
}

type listOutput struct {
	AllDisksAndPartitions []diskEntry `plist:"AllDisksAndPartitions"`
	WholeDisks            []string    `plist:"WholeDisks"`
}

type diskEntry struct {
	DeviceIdentifier   string        `plist:"DeviceIdentifier"`
	MountPoint         string        `plist:"MountPoint"`
	Partitions         []volumeEntry `plist:"Partitions"`
	APFSVolumes        []volumeEntry `plist:"APFSVolumes"`
	APFSPhysicalStores []volumeEntry `plist:"APFSPhysicalStores"`
}

type volumeEntry struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	MountPoint       string `plist:"MountPoint"`
}

type infoOutput struct {
	DeviceIdentifier               string `plist:"DeviceIdentifier"`
	DeviceNode                     string `plist:"DeviceNode"`
	MediaName                      string `plist:"MediaName"`
	BusProtocol                    string `plist:"BusProtocol"`
	Size                           uint64 `plist:"Size"`
	TotalSize                      uint64 `plist:"TotalSize"`
	Internal                       bool   `plist:"Internal"`
	Removable                      bool   `plist:"Removable"`
	RemovableMedia                 bool   `plist:"RemovableMedia"`
	RemovableMediaOrExternalDevice bool   `plist:"RemovableMediaOrExternalDevice"`
	Ejectable                      bool   `plist:"Ejectable"`
}

func New(config *Config) *Backend {
	run := config.Run
	if run == nil {
		run = command
	}
	return &Backend{
		run:    run,
		logger: config.Logger,
	}
}

func (b *Backend) Name() string {
	return diskutilExecutable
}

func (b *Backend) Enumerate(includeNonRemovable bool) ([]*device.Device, error) {
	args := []string{"list", "-plist"}
	if !includeNonRemovable {
		args = append(args, "external")
	}
	args = append(args, "physical")

	var list listOutput
	if err := b.plistCommand(&list, args...); err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrDiscoveryUnavailable, err)
	}

	var devices []*device.Device
	for _, id := range list.WholeDisks {
		logger := b.logger.WithField("disk", id)
		var info infoOutput
		if err := b.plistCommand(&info, "info", "-plist", id); err != nil {
			logger.Warnf("skipping disk as diskutil info failed: %v", err)
			continue
		}

		node := info.DeviceNode
		if node == "" {
			logger.Debug("skipping disk without a device node")
			continue
		}
		removable := info.Removable || info.RemovableMedia || info.RemovableMediaOrExternalDevice || info.Ejectable
		if !includeNonRemovable && !(info.BusProtocol == usbProtocol && removable) {
			logger.Debugf("skipping %v: protocol=%v removable=%v", node, info.BusProtocol, removable)
			continue
		}

		size := info.Size
		if size == 0 {
			size = info.TotalSize
		}
		devices = append(devices, device.New(device.Info{
			Path:      node,
			Identity:  id,
			Vendor:    info.MediaName,
			SizeBytes: size,
			Removable: removable,
		}))
	}
	return devices, nil
}

func (b *Backend) IsMounted(identity string) (bool, error) {
	volumes, err := b.mountedVolumes(identity)
	if err != nil {
		return false, err
	}
	return len(volumes) > 0, nil
}

func (b *Backend) Unmount(identity string) error {
	volumes, err := b.mountedVolumes(identity)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, err)
	}

	var errs []error
	for _, volume := range volumes {
		b.logger.WithField("volume", volume).Debug("unmounting volume")
		if _, err := b.run(diskutilExecutable, "unmount", volume); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", volume, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, errors.Join(errs...))
	}
	return nil
}

// mountedVolumes returns the identifiers of every mounted volume on the disk.
// APFS volumes live on a synthesized container disk whose physical store is one
// of our partitions, so those containers are found from the full disk list and
// their volumes come first.
func (b *Backend) mountedVolumes(identity string) ([]string, error) {
	var own listOutput
	if err := b.plistCommand(&own, "list", "-plist", identity); err != nil {
		return nil, err
	}
	var all listOutput
	if err := b.plistCommand(&all, "list", "-plist"); err != nil {
		return nil, err
	}

	var mounted []string
	for _, container := range all.AllDisksAndPartitions {
		if !storedOn(container, identity) {
			continue
		}
		b.logger.WithFields(logrus.Fields{
			"disk":      identity,
			"container": container.DeviceIdentifier,
		}).Debug("found apfs container")
		mounted = append(mounted, mountedIn(container)...)
	}
	for _, disk := range own.AllDisksAndPartitions {
		mounted = append(mounted, mountedIn(disk)...)
	}
	return mounted, nil
}

// storedOn reports whether an APFS container has a physical store on the disk.
func storedOn(container diskEntry, identity string) bool {
	for _, store := range container.APFSPhysicalStores {
		if store.DeviceIdentifier == identity || strings.HasPrefix(store.DeviceIdentifier, identity+"s") {
			return true
		}
	}
	return false
}

func mountedIn(disk diskEntry) []string {
	var mounted []string
	if disk.MountPoint != "" {
		mounted = append(mounted, disk.DeviceIdentifier)
	}
	for _, volume := range append(disk.Partitions, disk.APFSVolumes...) {
		if volume.MountPoint != "" {
			mounted = append(mounted, volume.DeviceIdentifier)
		}
	}
	return mounted
}

func (b *Backend) plistCommand(v interface{}, args ...string) error {
	out, err := b.run(diskutilExecutable, args...)
	if err != nil {
		return err
	}
	if _, err := plist.Unmarshal(out, v); err != nil {
		return fmt.Errorf("unable to parse diskutil %v output: %w", strings.Join(args, " "), err)
	}
	return nil
}

func command(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%v %v: %w: %v", name, strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%v %v: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}
