package imagesource

import (
	"errors"
	"fmt"
	"github.com/mholt/archiver/v3"
	"github.com/sirupsen/logrus"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidImage       = errors.New("invalid image")
	ErrUnsupportedArchive = errors.New("unsupported archive")
)

type Kind string

const (
	KindRaw Kind = "raw"
	KindISO Kind = "iso"
)

var (
	imageExtensions      = []string{".img", ".raw", ".iso", ".bin"}
	compressedExtensions = []string{".gz", ".xz", ".bz2", ".zst", ".lz4", ".sz", ".br"}
	archiveExtensions    = []string{
		".zip", ".rar", ".tar",
		".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.bz2", ".tbz2",
		".tar.zst", ".tar.lz4", ".tlz4", ".tar.sz", ".tsz", ".tar.br",
	}
	unsupportedExtensions = []string{".7z", ".dmg"}
)

// Image is a raw image ready to be written.
type Image struct {
	Path string
	Size uint64
	Kind Kind
	// Hybrid is set for ISO images that also carry a partition table.
	Hybrid         bool
	PartitionTable string

	workDir string
}

// Cleanup removes anything extracted for this image.
func (i *Image) Cleanup() error {
	if i.workDir == "" {
		return nil
	}
	return os.RemoveAll(i.workDir)
}

// PartitionInspector returns the partition table type found in an image.
type PartitionInspector func(path string) (string, error)

type Config struct {
	WorkDir string
	Inspect PartitionInspector
	Logger  *logrus.Logger
}

type Resolver struct {
	workDir string
	inspect PartitionInspector
	logger  *logrus.Logger
}

func New(config *Config) *Resolver {
	r := &Resolver{
		workDir: config.WorkDir,
		inspect: config.Inspect,
		logger:  config.Logger,
	}
	if r.inspect == nil {
		r.inspect = partitionTableType
	}
	return r
}

// Resolve turns a user supplied path into a raw image. Compressed images and
// single image archives are extracted into a temporary directory that the caller
// releases with Image.Cleanup.
func (r *Resolver) Resolve(path string) (*Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no image selected", ErrInvalidImage)
	}
	if err := checkRegular(path); err != nil {
		return nil, err
	}
	logger := r.logger.WithField("image", path)

	image := &Image{Path: path}
	name := strings.ToLower(filepath.Base(path))
	var err error
	switch {
	case hasSuffix(name, unsupportedExtensions):
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArchive, filepath.Base(path))
	case hasSuffix(name, archiveExtensions):
		err = r.unarchive(logger, image)
	case hasSuffix(name, compressedExtensions):
		err = r.decompress(logger, image)
	}
	if err != nil {
		image.Cleanup()
		return nil, err
	}

	info, err := os.Stat(image.Path)
	if err != nil {
		image.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	image.Size = uint64(info.Size())

	image.Kind = KindRaw
	if strings.EqualFold(filepath.Ext(image.Path), ".iso") {
		image.Kind = KindISO
		table, err := r.inspect(image.Path)
		if err != nil {
			logger.Debugf("no partition table found in iso: %v", err)
		} else if table != "" {
			image.Hybrid = true
			image.PartitionTable = table
		}
	}

	logger.WithFields(logrus.Fields{
		"resolved": image.Path,
		"kind":     image.Kind,
		"hybrid":   image.Hybrid,
	}).Debug("resolved image")
	return image, nil
}

func (r *Resolver) decompress(logger *logrus.Entry, image *Image) error {
	dir, err := os.MkdirTemp(r.workDir, "image-burner-")
	if err != nil {
		return err
	}
	image.workDir = dir

	base := filepath.Base(image.Path)
	target := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	logger.WithField("destination", target).Info("decompressing image")
	if err := archiver.DecompressFile(image.Path, target); err != nil {
		return fmt.Errorf("%w: unable to decompress %v: %v", ErrInvalidImage, base, err)
	}
	image.Path = target
	return nil
}

func (r *Resolver) unarchive(logger *logrus.Entry, image *Image) error {
	dir, err := os.MkdirTemp(r.workDir, "image-burner-")
	if err != nil {
		return err
	}
	image.workDir = dir

	logger.WithField("destination", dir).Info("extracting image archive")
	if err := archiver.Unarchive(image.Path, dir); err != nil {
		return fmt.Errorf("%w: unable to extract %v: %v", ErrInvalidImage, filepath.Base(image.Path), err)
	}

	var found []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && hasSuffix(strings.ToLower(d.Name()), imageExtensions) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(found) != 1 {
		return fmt.Errorf("%w: archive must contain exactly one image, found %v", ErrUnsupportedArchive, len(found))
	}
	image.Path = found[0]
	return nil
}

// Discover lists the candidate images at path. A file is returned as is when it
// looks like an image.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !info.IsDir() {
		if !IsCandidate(info.Name()) {
			return nil, fmt.Errorf("%w: %v is not a supported image", ErrInvalidImage, info.Name())
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !IsCandidate(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(path, entry.Name()))
	}
	return images, nil
}

// IsCandidate reports whether a file name has an image, compressed image or
// archive extension.
func IsCandidate(name string) bool {
	name = strings.ToLower(name)
	if hasSuffix(name, imageExtensions) || hasSuffix(name, archiveExtensions) {
		return true
	}
	for _, ext := range compressedExtensions {
		if hasSuffix(strings.TrimSuffix(name, ext), imageExtensions) && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func checkRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %v is not a regular file", ErrInvalidImage, path)
	}
	return nil
}

func hasSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
