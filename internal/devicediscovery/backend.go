package devicediscovery

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery/blockinfo"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery/diskutil"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery/udisks"
)

type SupportedHostOS string

const (
	OSDarwin  SupportedHostOS = "darwin"
	OSLinux   SupportedHostOS = "linux"
	OSWindows SupportedHostOS = "windows"
)

var SupportedHostOSes = []SupportedHostOS{OSDarwin, OSLinux, OSWindows}

type BackendName string

const (
	BackendAuto      BackendName = "auto"
	BackendUDisks    BackendName = "udisks"
	BackendDiskutil  BackendName = "diskutil"
	BackendBlockInfo BackendName = "blockinfo"
)

var SupportedBackends = []BackendName{BackendAuto, BackendUDisks, BackendDiskutil, BackendBlockInfo}

var defaultBackends = map[SupportedHostOS]BackendName{
	OSLinux:   BackendUDisks,
	OSDarwin:  BackendDiskutil,
	OSWindows: BackendBlockInfo,
}

// NewBackend picks the device backend for hostOS. An empty name or "auto" selects
// the default backend of that host.
func NewBackend(hostOS string, name BackendName, logger *logrus.Logger) (Backend, error) {
	if name == "" || name == BackendAuto {
		selected, ok := defaultBackends[SupportedHostOS(hostOS)]
		if !ok {
			return nil, fmt.Errorf("%w: no device backend for host os %v", ErrDiscoveryUnavailable, hostOS)
		}
		name = selected
	}
	logger.WithFields(logrus.Fields{
		"hostOS":  hostOS,
		"backend": name,
	}).Debug("selected device backend")

	switch name {
	case BackendUDisks:
		return udisks.New(&udisks.Config{Logger: logger}), nil
	case BackendDiskutil:
		return diskutil.New(&diskutil.Config{Logger: logger}), nil
	case BackendBlockInfo:
		return blockinfo.New(&blockinfo.Config{HostOS: hostOS, Logger: logger}), nil
	}
	return nil, fmt.Errorf("unknown device backend %q", name)
}
