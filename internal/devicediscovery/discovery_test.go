package devicediscovery

import (
	"errors"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gitlab.com/calyxos/image-burner/internal/device"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery/mocks"
	"testing"
)

var (
	testStick = device.New(device.Info{Path: "/dev/sdb", Identity: "sdb", Vendor: "SanDisk", Model: "Cruzer", SizeBytes: 16 << 30, Removable: true})
	testCard  = device.New(device.Info{Path: "/dev/mmcblk0", Identity: "mmcblk0", Vendor: "", SizeBytes: 32 << 30, Removable: true})
	testSSD   = device.New(device.Info{Path: "/dev/nvme0n1", Identity: "nvme0n1", Vendor: "Samsung", SizeBytes: 512 << 30})
	testNoDev = device.New(device.Info{Identity: "loop", Removable: true})
)

func newTestDiscovery(ctrl *gomock.Controller) (*Discovery, *mocks.MockBackend) {
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Name().Return("test").AnyTimes()
	return New(&Config{Backend: backend, Logger: logrus.New()}), backend
}

func TestScan(t *testing.T) {
	tests := map[string]struct {
		includeNonRemovable bool
		prepare             func(*mocks.MockBackend)
		expectedDevices     []*device.Device
		expectedErr         error
	}{
		"safe scan keeps removable devices": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick, testSSD, testCard}, nil)
			},
			expectedDevices: []*device.Device{testStick, testCard},
		},
		"unsafe scan keeps every device": {
			includeNonRemovable: true,
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Enumerate(true).Return([]*device.Device{testStick, testSSD}, nil)
			},
			expectedDevices: []*device.Device{testStick, testSSD},
		},
		"devices without a device node are dropped": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Enumerate(false).Return([]*device.Device{testNoDev, testStick, nil}, nil)
			},
			expectedDevices: []*device.Device{testStick},
		},
		"no devices is an empty result": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Enumerate(false).Return(nil, nil)
			},
			expectedDevices: []*device.Device{},
		},
		"backend failure is discovery unavailable": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Enumerate(false).Return(nil, errors.New("bus closed"))
			},
			expectedErr: ErrDiscoveryUnavailable,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			d, backend := newTestDiscovery(ctrl)
			tc.prepare(backend)

			devices, err := d.Scan(tc.includeNonRemovable)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, devices)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedDevices, devices)
			assert.Equal(t, tc.expectedDevices, d.Devices())
		})
	}
}

func TestScanFailureKeepsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d, backend := newTestDiscovery(ctrl)
	gomock.InOrder(
		backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick}, nil),
		backend.EXPECT().Enumerate(false).Return(nil, errors.New("bus closed")),
	)

	_, err := d.Scan(false)
	assert.NoError(t, err)
	_, err = d.Scan(false)
	assert.ErrorIs(t, err, ErrDiscoveryUnavailable)
	assert.Equal(t, []*device.Device{testStick}, d.Devices())
}

func TestDevicesReturnsCopy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d, backend := newTestDiscovery(ctrl)
	backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick, testCard}, nil)

	_, err := d.Scan(false)
	assert.NoError(t, err)
	devices := d.Devices()
	devices[0] = nil
	assert.Equal(t, testStick, d.Devices()[0])
}

func TestFind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d, backend := newTestDiscovery(ctrl)
	backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick, testCard}, nil)
	_, err := d.Scan(false)
	assert.NoError(t, err)

	found, err := d.Find("/dev/mmcblk0")
	assert.NoError(t, err)
	assert.Equal(t, testCard, found)

	_, err = d.Find("/dev/sdz")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestIsMounted(t *testing.T) {
	tests := map[string]struct {
		prepare     func(*mocks.MockBackend)
		expected    bool
		expectedErr error
	}{
		"mounted": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().IsMounted("sdb").Return(true, nil)
			},
			expected: true,
		},
		"not mounted": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().IsMounted("sdb").Return(false, nil)
			},
		},
		"device vanished": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().IsMounted("sdb").Return(false, device.ErrNotFound)
			},
			expectedErr: ErrDeviceNotFound,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			d, backend := newTestDiscovery(ctrl)
			tc.prepare(backend)

			mounted, err := d.IsMounted("sdb")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, mounted)
		})
	}
}

func TestUnmount(t *testing.T) {
	tests := map[string]struct {
		prepare     func(*mocks.MockBackend)
		expectedErr error
	}{
		"unmount successful": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Unmount("sdb").Return(nil)
			},
		},
		"backend error is wrapped": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Unmount("sdb").Return(errors.New("target is busy"))
			},
			expectedErr: ErrUnmountFailed,
		},
		"backend unmount failure is kept": {
			prepare: func(backend *mocks.MockBackend) {
				backend.EXPECT().Unmount("sdb").Return(device.ErrUnmountFailed)
			},
			expectedErr: ErrUnmountFailed,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			d, backend := newTestDiscovery(ctrl)
			tc.prepare(backend)

			err := d.Unmount("sdb")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLookupKeepsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d, backend := newTestDiscovery(ctrl)
	gomock.InOrder(
		backend.EXPECT().Enumerate(true).Return([]*device.Device{testStick, testSSD}, nil),
		backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick, testSSD}, nil),
		backend.EXPECT().Enumerate(false).Return([]*device.Device{testStick, testSSD}, nil),
		backend.EXPECT().Enumerate(false).Return(nil, errors.New("bus closed")),
	)
	_, err := d.Scan(true)
	assert.NoError(t, err)

	found, err := d.Lookup("/dev/sdb", false)
	assert.NoError(t, err)
	assert.Equal(t, testStick, found)

	_, err = d.Lookup("/dev/nvme0n1", false)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = d.Lookup("/dev/sdb", false)
	assert.ErrorIs(t, err, ErrDiscoveryUnavailable)

	assert.Equal(t, []*device.Device{testStick, testSSD}, d.Devices())
}

type lockingBackend struct {
	*mocks.MockBackend
	locked   []string
	released []string
	err      error
}

func (b *lockingBackend) LockVolumes(identity string) (func() error, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.locked = append(b.locked, identity)
	return func() error {
		b.released = append(b.released, identity)
		return nil
	}, nil
}

func TestLockVolumes(t *testing.T) {
	tests := map[string]struct {
		lockErr     error
		expectedErr error
	}{
		"volumes stay locked until released": {},
		"lock failure is an unmount failure": {
			lockErr:     errors.New("access denied"),
			expectedErr: ErrUnmountFailed,
		},
		"unsupported host is reported as such": {
			lockErr:     device.ErrLockUnsupported,
			expectedErr: ErrLockUnsupported,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			backend := &lockingBackend{MockBackend: mocks.NewMockBackend(ctrl), err: tc.lockErr}
			backend.EXPECT().Name().Return("test").AnyTimes()
			d := New(&Config{Backend: backend, Logger: logrus.New()})

			release, err := d.LockVolumes("sdb")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, release)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, []string{"sdb"}, backend.locked)
			assert.Empty(t, backend.released)
			assert.NoError(t, release())
			assert.Equal(t, []string{"sdb"}, backend.released)
		})
	}
}

func TestLockVolumesWithoutLockingBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d, _ := newTestDiscovery(ctrl)
	release, err := d.LockVolumes("sdb")
	assert.ErrorIs(t, err, ErrLockUnsupported)
	assert.Nil(t, release)
}
