package devicediscovery

import (
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNewBackend(t *testing.T) {
	tests := map[string]struct {
		hostOS       string
		name         BackendName
		expectedName string
		expectedErr  error
		expectAnyErr bool
	}{
		"linux defaults to udisks": {
			hostOS:       "linux",
			expectedName: "udisks",
		},
		"darwin defaults to diskutil": {
			hostOS:       "darwin",
			name:         BackendAuto,
			expectedName: "diskutil",
		},
		"windows defaults to blockinfo": {
			hostOS:       "windows",
			expectedName: "blockinfo",
		},
		"explicit backend overrides host default": {
			hostOS:       "linux",
			name:         BackendBlockInfo,
			expectedName: "blockinfo",
		},
		"unsupported host": {
			hostOS:      "plan9",
			expectedErr: ErrDiscoveryUnavailable,
		},
		"unknown backend": {
			hostOS:       "linux",
			name:         BackendName("hal"),
			expectAnyErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			backend, err := NewBackend(tc.hostOS, tc.name, logrus.New())
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			if tc.expectAnyErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedName, backend.Name())
		})
	}
}
