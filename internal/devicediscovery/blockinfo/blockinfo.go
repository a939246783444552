package blockinfo

import (
	"errors"
	"fmt"
	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"sort"
	"strings"
)

type BlockReader func() (*ghw.BlockInfo, error)

type MountLister func() ([]disk.PartitionStat, error)

type Unmounter func(mountpoint string) error

// VolumeLock takes a volume offline and keeps it that way until release is called.
type VolumeLock func(mountpoint string) (release func() error, err error)

type Config struct {
	HostOS     string
	ReadBlock  BlockReader
	ListMounts MountLister
	Unmount    Unmounter
	LockVolume VolumeLock
	Logger     *logrus.Logger
}

// Backend discovers disks from the host block inventory and checks mounts against
// the live mount table. Device identities are ghw disk names.
type Backend struct {
	hostOS     string
	readBlock  BlockReader
	listMounts MountLister
	unmount    Unmounter
	lockVolume VolumeLock
	logger     *logrus.Logger
}

func New(config *Config) *Backend {
	b := &Backend{
		hostOS:     config.HostOS,
		readBlock:  config.ReadBlock,
		listMounts: config.ListMounts,
		unmount:    config.Unmount,
		lockVolume: config.LockVolume,
		logger:     config.Logger,
	}
	if b.readBlock == nil {
		b.readBlock = func() (*ghw.BlockInfo, error) { return ghw.Block() }
	}
	if b.listMounts == nil {
		b.listMounts = func() ([]disk.PartitionStat, error) { return disk.Partitions(true) }
	}
	if b.unmount == nil {
		b.unmount = unmountVolume
	}
	if b.lockVolume == nil {
		b.lockVolume = lockVolume
	}
	return b
}

func (b *Backend) Name() string {
	return "blockinfo"
}

func (b *Backend) Enumerate(includeNonRemovable bool) ([]*device.Device, error) {
	info, err := b.readBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrDiscoveryUnavailable, err)
	}

	var devices []*device.Device
	for _, d := range info.Disks {
		if d == nil || d.Name == "" {
			continue
		}
		removable := d.IsRemovable || isUSB(d)
		if !includeNonRemovable && !removable {
			b.logger.WithField("disk", d.Name).Debug("skipping non-removable disk")
			continue
		}
		devices = append(devices, device.New(device.Info{
			Path:      b.deviceNode(d.Name),
			Identity:  d.Name,
			Vendor:    cleanString(d.Vendor),
			Model:     cleanString(d.Model),
			SizeBytes: d.SizeBytes,
			Removable: removable,
		}))
	}
	return devices, nil
}

func (b *Backend) IsMounted(identity string) (bool, error) {
	mountpoints, err := b.mountpoints(identity)
	if err != nil {
		return false, err
	}
	return len(mountpoints) > 0, nil
}

func (b *Backend) Unmount(identity string) error {
	mountpoints, err := b.mountpoints(identity)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, err)
	}

	var errs []error
	for _, mountpoint := range mountpoints {
		b.logger.WithField("mountpoint", mountpoint).Debug("unmounting volume")
		if err := b.unmount(mountpoint); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", mountpoint, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", device.ErrUnmountFailed, errors.Join(errs...))
	}
	return nil
}

// LockVolumes locks and dismounts every mounted volume of the disk. Only Windows
// needs this: a dismounted volume there comes back on the next access unless its
// lock is held for the whole write.
func (b *Backend) LockVolumes(identity string) (func() error, error) {
	if b.hostOS != "windows" || b.lockVolume == nil {
		return nil, device.ErrLockUnsupported
	}
	mountpoints, err := b.mountpoints(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUnmountFailed, err)
	}

	var releases []func() error
	releaseAll := func() error {
		var errs []error
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, mountpoint := range mountpoints {
		b.logger.WithField("mountpoint", mountpoint).Debug("locking volume")
		release, err := b.lockVolume(mountpoint)
		if err != nil {
			if err := releaseAll(); err != nil {
				b.logger.Warnf("unable to release volume locks: %v", err)
			}
			return nil, fmt.Errorf("%w: %v: %v", device.ErrUnmountFailed, mountpoint, err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// mountpoints returns where the disk or any of its partitions is mounted.
func (b *Backend) mountpoints(identity string) ([]string, error) {
	info, err := b.readBlock()
	if err != nil {
		return nil, err
	}
	var target *ghw.Disk
	for _, d := range info.Disks {
		if d != nil && d.Name == identity {
			target = d
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %v", device.ErrNotFound, identity)
	}

	nodes := map[string]bool{b.deviceNode(target.Name): true}
	volumes := map[string]bool{}
	for _, p := range target.Partitions {
		if p == nil {
			continue
		}
		if p.Name != "" {
			nodes[b.deviceNode(p.Name)] = true
		}
		if p.MountPoint != "" {
			volumes[p.MountPoint] = true
		}
	}

	mounts, err := b.listMounts()
	var warnings *disk.Warnings
	if errors.As(err, &warnings) {
		b.logger.Warnf("mount table is incomplete: %v", warnings)
	} else if err != nil {
		return nil, fmt.Errorf("unable to read mount table: %w", err)
	}
	seen := map[string]bool{}
	var mountpoints []string
	for _, m := range mounts {
		if !nodes[m.Device] && !volumes[m.Mountpoint] {
			continue
		}
		if !seen[m.Mountpoint] {
			seen[m.Mountpoint] = true
			mountpoints = append(mountpoints, m.Mountpoint)
		}
	}
	sort.Strings(mountpoints)
	return mountpoints, nil
}

func (b *Backend) deviceNode(name string) string {
	if b.hostOS == "windows" || strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}

func isUSB(d *ghw.Disk) bool {
	return strings.Contains(strings.ToLower(d.BusPath), "usb")
}

// cleanString drops ghw's placeholder for values it could not read.
func cleanString(s string) string {
	if s == "unknown" {
		return ""
	}
	return strings.ReplaceAll(s, "_", " ")
}
