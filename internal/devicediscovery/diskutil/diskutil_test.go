package diskutil

import (
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/calyxos/image-burner/internal/device"
	"howett.net/plist"
	"strings"
	"testing"
)

type fakeDiskutil struct {
	t        *testing.T
	outputs  map[string]interface{}
	failures map[string]error
	calls    []string
}

func (f *fakeDiskutil) run(name string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	v, ok := f.outputs[key]
	if !ok {
		return nil, fmt.Errorf("unexpected command: %v %v", name, key)
	}
	if v == nil {
		return nil, nil
	}
	out, err := plist.Marshal(v, plist.XMLFormat)
	require.NoError(f.t, err)
	return out, nil
}

func hostOutputs() map[string]interface{} {
	return map[string]interface{}{
		"list -plist external physical": listOutput{WholeDisks: []string{"disk4"}},
		"list -plist physical":          listOutput{WholeDisks: []string{"disk0", "disk4", "disk5"}},
		"info -plist disk0": infoOutput{
			DeviceIdentifier: "disk0", DeviceNode: "/dev/disk0", MediaName: "APPLE SSD AP0512Q",
			BusProtocol: "Apple Fabric", Size: 500277792768, Internal: true,
		},
		"info -plist disk4": infoOutput{
			DeviceIdentifier: "disk4", DeviceNode: "/dev/disk4", MediaName: "SanDisk Cruzer Media",
			BusProtocol: "USB", Size: 8000 * 1024 * 1024, RemovableMediaOrExternalDevice: true, Ejectable: true,
		},
		"info -plist disk5": infoOutput{
			DeviceIdentifier: "disk5", MediaName: "Disk Image", BusProtocol: "Disk Image",
		},
		"list -plist disk4": listOutput{
			AllDisksAndPartitions: []diskEntry{{
				DeviceIdentifier: "disk4",
				Partitions: []volumeEntry{
					{DeviceIdentifier: "disk4s1", MountPoint: "/Volumes/EFI"},
					{DeviceIdentifier: "disk4s2", MountPoint: "/Volumes/STICK"},
					{DeviceIdentifier: "disk4s3"},
				},
			}},
		},
		"list -plist disk6": listOutput{
			AllDisksAndPartitions: []diskEntry{{DeviceIdentifier: "disk6"}},
		},
		"list -plist disk7": listOutput{
			AllDisksAndPartitions: []diskEntry{{
				DeviceIdentifier: "disk7",
				Partitions: []volumeEntry{
					{DeviceIdentifier: "disk7s1"},
					{DeviceIdentifier: "disk7s2"},
				},
			}},
		},
		"list -plist": listOutput{
			AllDisksAndPartitions: []diskEntry{
				{
					DeviceIdentifier: "disk0",
					Partitions: []volumeEntry{
						{DeviceIdentifier: "disk0s1"},
						{DeviceIdentifier: "disk0s2"},
					},
				},
				{
					DeviceIdentifier:   "disk3",
					APFSPhysicalStores: []volumeEntry{{DeviceIdentifier: "disk0s2"}},
					APFSVolumes: []volumeEntry{
						{DeviceIdentifier: "disk3s1", MountPoint: "/System/Volumes/Data"},
						{DeviceIdentifier: "disk3s3", MountPoint: "/"},
					},
				},
				{DeviceIdentifier: "disk4"},
				{DeviceIdentifier: "disk7"},
				{
					DeviceIdentifier:   "disk8",
					APFSPhysicalStores: []volumeEntry{{DeviceIdentifier: "disk7s2"}},
					APFSVolumes: []volumeEntry{
						{DeviceIdentifier: "disk8s1", MountPoint: "/Volumes/Backup"},
						{DeviceIdentifier: "disk8s2"},
					},
				},
				{
					DeviceIdentifier:   "disk71",
					APFSPhysicalStores: []volumeEntry{{DeviceIdentifier: "disk70s2"}},
					APFSVolumes:        []volumeEntry{{DeviceIdentifier: "disk71s1", MountPoint: "/Volumes/Other"}},
				},
			},
		},
		"unmount disk4s1": nil,
		"unmount disk4s2": nil,
		"unmount disk8s1": nil,
	}
}

func newTestBackend(t *testing.T, fake *fakeDiskutil) *Backend {
	fake.t = t
	return New(&Config{Run: fake.run, Logger: logrus.StandardLogger()})
}

func TestEnumerate(t *testing.T) {
	tests := map[string]struct {
		unsafe        bool
		failures      map[string]error
		expectedErr   error
		expectedPaths []string
	}{
		"safe mode lists external usb disks": {
			expectedPaths: []string{"/dev/disk4"},
		},
		"unsafe mode lists internal disks too": {
			unsafe:        true,
			expectedPaths: []string{"/dev/disk0", "/dev/disk4"},
		},
		"disk info failure skips only that disk": {
			unsafe:        true,
			failures:      map[string]error{"info -plist disk0": errors.New("exit status 1")},
			expectedPaths: []string{"/dev/disk4"},
		},
		"diskutil unavailable": {
			failures:    map[string]error{"list -plist external physical": errors.New("executable file not found")},
			expectedErr: device.ErrDiscoveryUnavailable,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &fakeDiskutil{outputs: hostOutputs(), failures: tc.failures}
			devices, err := newTestBackend(t, fake).Enumerate(tc.unsafe)
			if tc.expectedErr != nil {
				assert.True(t, errors.Is(err, tc.expectedErr))
				assert.Nil(t, devices)
				return
			}
			require.NoError(t, err)
			var paths []string
			for _, d := range devices {
				paths = append(paths, d.Path())
			}
			assert.Equal(t, tc.expectedPaths, paths)
		})
	}
}

func TestEnumerateLabel(t *testing.T) {
	fake := &fakeDiskutil{outputs: hostOutputs()}
	devices, err := newTestBackend(t, fake).Enumerate(false)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "SanDisk Cruzer Media - /dev/disk4 (8000 MB)", devices[0].DisplayLabel())
	assert.Equal(t, "disk4", devices[0].Identity())
	assert.True(t, devices[0].Removable())
}

func TestIsMounted(t *testing.T) {
	tests := map[string]struct {
		identity    string
		failures    map[string]error
		expected    bool
		expectedErr bool
	}{
		"mounted partitions": {
			identity: "disk4",
			expected: true,
		},
		"nothing mounted": {
			identity: "disk6",
		},
		"mounted apfs container volume": {
			identity: "disk7",
			expected: true,
		},
		"disk list unavailable": {
			identity:    "disk7",
			failures:    map[string]error{"list -plist": errors.New("exit status 1")},
			expectedErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &fakeDiskutil{outputs: hostOutputs(), failures: tc.failures}
			mounted, err := newTestBackend(t, fake).IsMounted(tc.identity)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, mounted)
		})
	}
}

func TestMountedVolumesIncludesAPFSContainers(t *testing.T) {
	fake := &fakeDiskutil{outputs: hostOutputs()}
	backend := newTestBackend(t, fake)

	volumes, err := backend.mountedVolumes("disk7")
	require.NoError(t, err)
	assert.Equal(t, []string{"disk8s1"}, volumes)

	volumes, err = backend.mountedVolumes("disk0")
	require.NoError(t, err)
	assert.Equal(t, []string{"disk3s1", "disk3s3"}, volumes)
}

func TestUnmount(t *testing.T) {
	tests := map[string]struct {
		identity      string
		failures      map[string]error
		expectedErr   error
		expectedCalls []string
	}{
		"every mounted volume is unmounted": {
			identity:      "disk4",
			expectedCalls: []string{"list -plist disk4", "list -plist", "unmount disk4s1", "unmount disk4s2"},
		},
		"one failed volume fails the unmount after trying all": {
			identity:      "disk4",
			failures:      map[string]error{"unmount disk4s1": errors.New("resource busy")},
			expectedErr:   device.ErrUnmountFailed,
			expectedCalls: []string{"list -plist disk4", "list -plist", "unmount disk4s1", "unmount disk4s2"},
		},
		"apfs container volumes are unmounted": {
			identity:      "disk7",
			expectedCalls: []string{"list -plist disk7", "list -plist", "unmount disk8s1"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &fakeDiskutil{outputs: hostOutputs(), failures: tc.failures}
			err := newTestBackend(t, fake).Unmount(tc.identity)
			if tc.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tc.expectedErr))
			}
			assert.Equal(t, tc.expectedCalls, fake.calls)
		})
	}
}
