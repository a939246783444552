package imagesource

import (
	"errors"
	"github.com/mholt/archiver/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newTestResolver(t *testing.T, inspect PartitionInspector) *Resolver {
	return New(&Config{
		WorkDir: t.TempDir(),
		Inspect: inspect,
		Logger:  logrus.New(),
	})
}

func TestResolve(t *testing.T) {
	noTable := func(string) (string, error) { return "", errors.New("no partition table") }
	mbrTable := func(string) (string, error) { return "mbr", nil }

	tests := map[string]struct {
		prepare        func(t *testing.T, dir string) string
		inspect        PartitionInspector
		expectedKind   Kind
		expectedSize   uint64
		expectedHybrid bool
		expectedBase   string
		extracted      bool
		expectedErr    error
	}{
		"raw image": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "disk.img", 4096)
			},
			expectedKind: KindRaw,
			expectedSize: 4096,
			expectedBase: "disk.img",
		},
		"unknown extension is raw": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "firmware", 1024)
			},
			expectedKind: KindRaw,
			expectedSize: 1024,
			expectedBase: "firmware",
		},
		"hybrid iso": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "install.iso", 2048)
			},
			inspect:        mbrTable,
			expectedKind:   KindISO,
			expectedSize:   2048,
			expectedHybrid: true,
			expectedBase:   "install.iso",
		},
		"plain iso": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "install.ISO", 2048)
			},
			inspect:      noTable,
			expectedKind: KindISO,
			expectedSize: 2048,
			expectedBase: "install.ISO",
		},
		"gzip compressed image": {
			prepare: func(t *testing.T, dir string) string {
				src := writeFile(t, dir, "disk.img", 100000)
				dst := filepath.Join(dir, "disk.img.gz")
				require.NoError(t, archiver.CompressFile(src, dst))
				require.NoError(t, os.Remove(src))
				return dst
			},
			expectedKind: KindRaw,
			expectedSize: 100000,
			expectedBase: "disk.img",
			extracted:    true,
		},
		"zip with a single image": {
			prepare: func(t *testing.T, dir string) string {
				src := writeFile(t, dir, "live.iso", 8192)
				dst := filepath.Join(dir, "live.zip")
				require.NoError(t, archiver.Archive([]string{src}, dst))
				require.NoError(t, os.Remove(src))
				return dst
			},
			inspect:        mbrTable,
			expectedKind:   KindISO,
			expectedSize:   8192,
			expectedHybrid: true,
			expectedBase:   "live.iso",
			extracted:      true,
		},
		"zip with two images": {
			prepare: func(t *testing.T, dir string) string {
				a := writeFile(t, dir, "a.img", 512)
				b := writeFile(t, dir, "b.img", 512)
				dst := filepath.Join(dir, "two.zip")
				require.NoError(t, archiver.Archive([]string{a, b}, dst))
				return dst
			},
			expectedErr: ErrUnsupportedArchive,
		},
		"zip without images": {
			prepare: func(t *testing.T, dir string) string {
				readme := writeFile(t, dir, "README.txt", 12)
				dst := filepath.Join(dir, "docs.zip")
				require.NoError(t, archiver.Archive([]string{readme}, dst))
				return dst
			},
			expectedErr: ErrUnsupportedArchive,
		},
		"7z archive": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "disk.7z", 64)
			},
			expectedErr: ErrUnsupportedArchive,
		},
		"corrupt compressed image": {
			prepare: func(t *testing.T, dir string) string {
				return writeFile(t, dir, "disk.img.xz", 64)
			},
			expectedErr: ErrInvalidImage,
		},
		"empty path": {
			prepare: func(t *testing.T, dir string) string {
				return ""
			},
			expectedErr: ErrInvalidImage,
		},
		"missing file": {
			prepare: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "missing.img")
			},
			expectedErr: ErrInvalidImage,
		},
		"directory": {
			prepare: func(t *testing.T, dir string) string {
				return dir
			},
			expectedErr: ErrInvalidImage,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			inspect := tc.inspect
			if inspect == nil {
				inspect = noTable
			}
			r := newTestResolver(t, inspect)
			path := tc.prepare(t, t.TempDir())

			image, err := r.Resolve(path)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, image)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedKind, image.Kind)
			assert.Equal(t, tc.expectedSize, image.Size)
			assert.Equal(t, tc.expectedHybrid, image.Hybrid)
			assert.Equal(t, tc.expectedBase, filepath.Base(image.Path))
			assert.Equal(t, tc.extracted, image.Path != path)

			require.NoError(t, image.Cleanup())
			_, err = os.Stat(image.Path)
			assert.Equal(t, tc.extracted, os.IsNotExist(err))
		})
	}
}

func TestResolveFailureCleansUp(t *testing.T) {
	workDir := t.TempDir()
	r := New(&Config{WorkDir: workDir, Logger: logrus.New()})
	path := writeFile(t, t.TempDir(), "broken.img.gz", 128)

	_, err := r.Resolve(path)
	assert.ErrorIs(t, err, ErrInvalidImage)
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPartitionTableTypeBlankImage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blank.iso", 0)
	require.NoError(t, os.Truncate(path, 1024*1024))

	r := New(&Config{WorkDir: t.TempDir(), Logger: logrus.New()})
	image, err := r.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, KindISO, image.Kind)
	assert.False(t, image.Hybrid)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.img", 1)
	writeFile(t, dir, "b.iso", 1)
	writeFile(t, dir, "c.img.xz", 1)
	writeFile(t, dir, "d.zip", 1)
	writeFile(t, dir, "notes.txt", 1)
	writeFile(t, dir, "backup.gz", 1)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.img"), 0755))

	images, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.img"),
		filepath.Join(dir, "b.iso"),
		filepath.Join(dir, "c.img.xz"),
		filepath.Join(dir, "d.zip"),
	}, images)

	single, err := Discover(filepath.Join(dir, "b.iso"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.iso")}, single)

	_, err = Discover(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
