package imagewriter

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"io"
	"os"
)

var (
	ErrImageTooLarge    = errors.New("image is larger than the target device")
	ErrTargetOpenFailed = errors.New("unable to open target device")
	ErrReadFailed       = errors.New("failed reading image")
	ErrWriteFailed      = errors.New("failed writing to target device")
	ErrCancelled        = errors.New("write cancelled")
)

const (
	DefaultBlockSize = 1024 * 1024
	mebibyte         = 1024 * 1024
)

// Target is an opened raw device.
type Target interface {
	io.Writer
	Sync() error
	Close() error
}

type Opener func(path string) (Target, error)

// Source is an opened image file.
type Source interface {
	io.ReadCloser
	Stat() (os.FileInfo, error)
}

type SourceOpener func(path string) (Source, error)

// ProgressFunc receives the running byte count after every block.
type ProgressFunc func(written, total uint64)

type Config struct {
	BlockSize  int
	OpenSource SourceOpener
	OpenTarget Opener
	Logger     *logrus.Logger
}

type Writer struct {
	blockSize  int
	openSource SourceOpener
	openTarget Opener
	logger     *logrus.Logger
}

func New(config *Config) *Writer {
	w := &Writer{
		blockSize:  config.BlockSize,
		openSource: config.OpenSource,
		openTarget: config.OpenTarget,
		logger:     config.Logger,
	}
	if w.blockSize <= 0 {
		w.blockSize = DefaultBlockSize
	}
	if w.openSource == nil {
		w.openSource = openSource
	}
	if w.openTarget == nil {
		w.openTarget = openTarget
	}
	return w
}

func openSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Write copies sourcePath onto targetPath from offset zero. The target is only
// opened once the image is known to fit. Cancellation of ctx is honoured between
// blocks; whatever was already written stays on the device.
func (w *Writer) Write(ctx context.Context, sourcePath, targetPath string, capacity uint64, onProgress ProgressFunc) (err error) {
	logger := w.logger.WithFields(logrus.Fields{
		"source": sourcePath,
		"target": targetPath,
	})

	source, err := w.openSource(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %v is not a regular file", ErrReadFailed, sourcePath)
	}
	total := uint64(info.Size())
	if total > capacity {
		return fmt.Errorf("%w: image is %v MB, device is %v MB", ErrImageTooLarge, total/mebibyte, capacity/mebibyte)
	}

	logger.Debug("opening target device")
	target, err := w.openTarget(targetPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTargetOpenFailed, err)
	}
	defer func() {
		closeErr := target.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrWriteFailed, closeErr)
		}
	}()

	logger.Infof("writing %v MB", total/mebibyte)
	buf := make([]byte, w.blockSize)
	var written uint64
	for {
		select {
		case <-ctx.Done():
			logger.Warnf("cancelled after %v", Describe(written, total))
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		default:
		}

		n, readErr := io.ReadFull(source, buf)
		if n > 0 {
			m, writeErr := target.Write(buf[:n])
			if writeErr != nil {
				return fmt.Errorf("%w: at offset %v: %v", ErrWriteFailed, written, writeErr)
			}
			if m != n {
				return fmt.Errorf("%w: at offset %v: %v", ErrWriteFailed, written, io.ErrShortWrite)
			}
			written += uint64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: at offset %v: %v", ErrReadFailed, written, readErr)
		}
	}

	if err := target.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrWriteFailed, err)
	}
	logger.Info(Describe(written, total))
	return nil
}

// Percent is the whole percentage of total written so far.
func Percent(written, total uint64) int {
	if total == 0 {
		return 100
	}
	return int(written * 100 / total)
}

func Describe(written, total uint64) string {
	return fmt.Sprintf("Written %v MB out of %v MB", written/mebibyte, total/mebibyte)
}
