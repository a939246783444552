package main

import (
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"gitlab.com/calyxos/image-burner/internal/api"
	"gitlab.com/calyxos/image-burner/internal/color"
	"gitlab.com/calyxos/image-burner/internal/device"
	"gitlab.com/calyxos/image-burner/internal/flash"
	"gitlab.com/calyxos/image-burner/internal/imagesource"
	"gitlab.com/calyxos/image-burner/internal/imagewriter"
	"path/filepath"
)

var errNoDevices = errors.New("no devices found")

func newListCommand(a *app) *cobra.Command {
	var unsafe bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices that can be written to",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := a.scan(unsafe || a.config.Unsafe)
			if len(devices) == 0 {
				a.logger.Warn(errNoDevices)
				return nil
			}
			a.logger.Info("Discovered the following device(s):")
			for _, d := range devices {
				a.logger.Infof("💾 %v", d.DisplayLabel())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "include non-removable disks")
	return cmd
}

func newWriteCommand(a *app) *cobra.Command {
	var (
		imagePath  string
		devicePath string
		unsafe     bool
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write an image to a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}
			unsafe = unsafe || a.config.Unsafe

			image, err := chooseImage(imagePath)
			if err != nil {
				return err
			}
			devices := a.scan(unsafe)
			if len(devices) == 0 {
				return errNoDevices
			}
			if devicePath == "" {
				devicePath, err = chooseDevice(devices)
				if err != nil {
					return err
				}
			}

			var decider flash.Decider = promptDecider{}
			if yes {
				decider = flash.Answers{Unmount: true, Write: true}
			}
			f := a.newFlash(decider)

			lastPercent := -1
			job, err := f.Start(cmd.Context(), flash.Request{
				Image:  image,
				Device: devicePath,
				Unsafe: unsafe,
			}, func(p flash.Progress) {
				if p.State != flash.Writing || p.Percent == lastPercent {
					return
				}
				lastPercent = p.Percent
				a.logger.WithField("prefix", filepath.Base(devicePath)).Infof("%v%% %v", p.Percent, p.Message)
			})
			if err != nil {
				return err
			}
			a.logger.WithField("requestId", job.ID).Debug("started flash")
			if err := job.Wait(); err != nil {
				if errors.Is(err, flash.ErrAborted) {
					a.logger.Warn(color.Yellow(err))
					return nil
				}
				return err
			}
			a.logger.Info(color.Green("finished writing image to ", devicePath))
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "image file, or a directory of images")
	cmd.Flags().StringVar(&devicePath, "device", "", "target device, prompted for when empty")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "allow non-removable disks")
	cmd.Flags().BoolVar(&yes, "yes", false, "answer yes to unmount and overwrite questions")
	cmd.MarkFlagRequired("image")
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}
			if listen == "" {
				listen = a.config.Listen
			}
			a.scan(a.config.Unsafe)
			server := api.New(&api.Config{
				Devices:        a.discovery,
				Flash:          a.newFlash(nil),
				AllowUnsafe:    a.config.Unsafe,
				AllowedOrigins: a.config.AllowedOrigins,
				Logger:         a.logger,
			})
			return server.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func (a *app) newFlash(decider flash.Decider) *flash.Flash {
	return flash.New(&flash.Config{
		Discovery: a.discovery,
		Mounts:    a.discovery,
		Images: imagesource.New(&imagesource.Config{
			WorkDir: a.config.WorkDir,
			Logger:  a.logger,
		}),
		Writer: imagewriter.New(&imagewriter.Config{
			BlockSize: a.config.BlockSize,
			Logger:    a.logger,
		}),
		Decider: decider,
		Logger:  a.logger,
	})
}

func chooseImage(path string) (string, error) {
	images, err := imagesource.Discover(path)
	if err != nil {
		return "", err
	}
	switch len(images) {
	case 0:
		return "", fmt.Errorf("%w: no images found in %v", imagesource.ErrInvalidImage, path)
	case 1:
		return images[0], nil
	}
	i, err := selectItem("Select image", images)
	if err != nil {
		return "", err
	}
	return images[i], nil
}

func chooseDevice(devices []*device.Device) (string, error) {
	labels := make([]string, len(devices))
	for i, d := range devices {
		labels[i] = d.DisplayLabel()
	}
	i, err := selectItem("Select device", labels)
	if err != nil {
		return "", err
	}
	return devices[i].Path(), nil
}
