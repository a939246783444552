//go:generate mockgen -destination=mocks/mocks.go -package=mocks . DeviceDiscoverer,MountChecker,ImageResolver,ImageWriter,Decider
package flash

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gitlab.com/calyxos/image-burner/internal/device"
	"gitlab.com/calyxos/image-burner/internal/imagesource"
	"gitlab.com/calyxos/image-burner/internal/imagewriter"
	"sync"
)

var (
	ErrBusy          = errors.New("a flash is already in progress")
	ErrAborted       = errors.New("flash aborted")
	ErrNoSource      = errors.New("no image selected")
	ErrNotRemovable  = errors.New("device is not removable and unsafe mode is off")
	ErrDeviceChanged = errors.New("device changed since it was selected")
)

type DeviceDiscoverer interface {
	Find(path string) (*device.Device, error)
	Lookup(path string, includeNonRemovable bool) (*device.Device, error)
}

// MountChecker reports and resolves the mount state of a device. LockVolumes
// returns device.ErrLockUnsupported where an unmount stays in effect on its own.
type MountChecker interface {
	IsMounted(identity string) (bool, error)
	Unmount(identity string) error
	LockVolumes(identity string) (release func() error, err error)
}

type ImageResolver interface {
	Resolve(path string) (*imagesource.Image, error)
}

type ImageWriter interface {
	Write(ctx context.Context, sourcePath, targetPath string, capacity uint64, onProgress imagewriter.ProgressFunc) error
}

// Decider answers the questions asked while a flash is prepared.
type Decider interface {
	ConfirmUnmount(d *device.Device) (bool, error)
	ConfirmWrite(d *device.Device, text string) (bool, error)
}

type Request struct {
	ID     string
	Image  string
	Device string
	Unsafe bool
	// Decider overrides Config.Decider for this request.
	Decider Decider
}

type Progress struct {
	RequestID string `json:"requestId"`
	State     State  `json:"state"`
	Device    string `json:"device,omitempty"`
	Written   uint64 `json:"written"`
	Total     uint64 `json:"total"`
	Percent   int    `json:"percent"`
	Message   string `json:"message,omitempty"`
}

type ProgressFunc func(Progress)

type Config struct {
	Discovery DeviceDiscoverer
	Mounts    MountChecker
	Images    ImageResolver
	Writer    ImageWriter
	Decider   Decider
	Logger    *logrus.Logger
}

type Flash struct {
	discovery DeviceDiscoverer
	mounts    MountChecker
	images    ImageResolver
	writer    ImageWriter
	decider   Decider
	logger    *logrus.Logger

	mu      sync.Mutex
	busy    bool
	current *Job
}

func New(config *Config) *Flash {
	return &Flash{
		discovery: config.Discovery,
		mounts:    config.Mounts,
		images:    config.Images,
		writer:    config.Writer,
		decider:   config.Decider,
		logger:    config.Logger,
	}
}

// Flash runs one attempt on the calling goroutine.
func (f *Flash) Flash(ctx context.Context, req Request, sink ProgressFunc) error {
	if !f.acquire() {
		return ErrBusy
	}
	defer f.release()
	return f.run(ctx, f.prepare(req), sink)
}

// Busy reports whether an attempt is in flight.
func (f *Flash) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *Flash) acquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.busy = true
	return true
}

func (f *Flash) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
}

func (f *Flash) prepare(req Request) Request {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Decider == nil {
		req.Decider = f.decider
	}
	return req
}

type attempt struct {
	req      Request
	sink     ProgressFunc
	logger   *logrus.Entry
	progress Progress
}

func (a *attempt) set(state State, message string) {
	a.progress.State = state
	a.progress.Message = message
	a.logger.WithField("state", state).Debug(message)
	a.emit()
}

func (a *attempt) wrote(written, total uint64) {
	a.progress.Written = written
	a.progress.Total = total
	a.progress.Percent = imagewriter.Percent(written, total)
	a.progress.Message = imagewriter.Describe(written, total)
	a.emit()
}

func (a *attempt) emit() {
	if a.sink != nil {
		a.sink(a.progress)
	}
}

func (a *attempt) fail(err error) error {
	a.set(Failed, err.Error())
	return err
}

func (a *attempt) abort(message string) error {
	a.set(Idle, message)
	return fmt.Errorf("%w: %v", ErrAborted, message)
}

func (f *Flash) run(ctx context.Context, req Request, sink ProgressFunc) error {
	a := &attempt{
		req:  req,
		sink: sink,
		logger: f.logger.WithFields(logrus.Fields{
			"requestId": req.ID,
			"device":    req.Device,
			"image":     req.Image,
		}),
		progress: Progress{RequestID: req.ID, Device: req.Device},
	}
	a.set(Idle, "flash requested")

	if req.Image == "" {
		return a.fail(ErrNoSource)
	}
	image, err := f.images.Resolve(req.Image)
	if err != nil {
		return a.fail(err)
	}
	defer func() {
		if err := image.Cleanup(); err != nil {
			a.logger.Warnf("unable to clean up extracted image: %v", err)
		}
	}()
	if image.Kind == imagesource.KindISO {
		if image.Hybrid {
			a.logger.Warn("support for writing ISO files only includes hybrid ISO images")
		} else {
			a.logger.Warn("this ISO has no partition table and will most likely not boot from a USB device")
		}
	}
	a.progress.Total = image.Size
	a.set(SourceSelected, fmt.Sprintf("selected %v", image.Path))

	d, err := f.discovery.Find(req.Device)
	if err != nil {
		return a.fail(err)
	}
	if !req.Unsafe && !d.Removable() {
		return a.fail(fmt.Errorf("%w: %v", ErrNotRemovable, d.Path()))
	}
	a.set(DeviceSelected, d.DisplayLabel())

	mounted, err := f.mounts.IsMounted(d.Identity())
	if err != nil {
		return a.fail(err)
	}
	a.set(MountChecked, fmt.Sprintf("mounted=%v", mounted))

	if mounted {
		a.set(UnmountRequested, "device is mounted")
		ok, err := req.Decider.ConfirmUnmount(d)
		if err != nil {
			return a.fail(err)
		}
		if !ok {
			return a.abort("unmount declined")
		}
		if err := f.mounts.Unmount(d.Identity()); err != nil {
			a.logger.Error("unmount failed, not writing to this device")
			return a.fail(err)
		}
		a.set(UnmountResolved, "device unmounted")
	}

	ok, err := req.Decider.ConfirmWrite(d, ConfirmationText(d))
	if err != nil {
		return a.fail(err)
	}
	if !ok {
		return a.abort("write declined")
	}
	a.set(Confirmed, "write confirmed")

	target, release, err := f.recheck(req, d)
	if err != nil {
		return a.fail(err)
	}

	a.set(Writing, fmt.Sprintf("writing %v to %v", image.Path, target.Path()))
	err = f.writer.Write(ctx, image.Path, target.Path(), target.SizeBytes(), a.wrote)
	if releaseErr := release(); releaseErr != nil {
		a.logger.Warnf("unable to release device volumes: %v", releaseErr)
	}
	if errors.Is(err, imagewriter.ErrCancelled) {
		a.set(Cancelled, err.Error())
		return err
	}
	if err != nil {
		return a.fail(err)
	}
	a.set(Completed, imagewriter.Describe(a.progress.Written, a.progress.Total))
	a.logger.Info("flash complete")
	return nil
}

// recheck looks the device up again right before writing, since it may have been
// replaced or remounted while the user was deciding. The lookup leaves the served
// device list alone. Where the host remounts volumes on access they are locked
// here and stay locked until release is called after the write.
func (f *Flash) recheck(req Request, selected *device.Device) (*device.Device, func() error, error) {
	current, err := f.discovery.Lookup(selected.Path(), req.Unsafe)
	if err != nil {
		return nil, nil, err
	}
	if current.Identity() != selected.Identity() {
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceChanged, selected.Path())
	}

	release, err := f.mounts.LockVolumes(current.Identity())
	if err == nil {
		return current, release, nil
	}
	if !errors.Is(err, device.ErrLockUnsupported) {
		return nil, nil, fmt.Errorf("%w: %v", imagewriter.ErrTargetOpenFailed, err)
	}

	mounted, err := f.mounts.IsMounted(current.Identity())
	if err != nil {
		return nil, nil, err
	}
	if mounted {
		return nil, nil, fmt.Errorf("%w: %v was mounted again", imagewriter.ErrTargetOpenFailed, current.Path())
	}
	return current, func() error { return nil }, nil
}
