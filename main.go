package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gitlab.com/calyxos/image-burner/internal/color"
	"gitlab.com/calyxos/image-burner/internal/config"
	"gitlab.com/calyxos/image-burner/internal/device"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

var (
	hostOS  = runtime.GOOS
	version = "dev"
)

var errNotRoot = errors.New("writing to devices requires root")

type app struct {
	configPath string
	debug      bool
	backend    string

	config    *config.Config
	logger    *logrus.Logger
	discovery *devicediscovery.Discovery
}

func main() {
	logger := logrus.New()
	formatter := &prefixed.TextFormatter{ForceColors: true, ForceFormatting: true}
	formatter.SetColorScheme(&prefixed.ColorScheme{
		PrefixStyle: "white",
	})
	logger.SetFormatter(formatter)
	logger.SetOutput(colorable.NewColorableStdout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{logger: logger}
	err := newRootCommand(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Fatal(color.Red(err))
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "image-burner",
		Short:         "Write disk images to removable drives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "config file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "debug logging")
	cmd.PersistentFlags().StringVar(&a.backend, "backend", "", fmt.Sprintf("device backend %v", devicediscovery.SupportedBackends))
	cmd.AddCommand(
		newListCommand(a),
		newWriteCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = devicediscovery.BackendName(a.backend)
	}
	if a.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Debug {
		a.logger.SetLevel(logrus.DebugLevel)
	}
	a.config = cfg
	a.logger.WithFields(logrus.Fields{
		"config":  a.configPath,
		"backend": cfg.Backend,
		"hostOS":  hostOS,
	}).Debug("loaded config")
	return nil
}

// scan creates the discovery layer on first use and refreshes its snapshot.
// An unusable device service is fatal.
func (a *app) scan(unsafe bool) []*device.Device {
	if a.discovery == nil {
		backend, err := devicediscovery.NewBackend(hostOS, a.config.Backend, a.logger)
		if err != nil {
			a.logger.Fatalf(color.Red("failed to setup device discovery: %v"), err)
		}
		a.discovery = devicediscovery.New(&devicediscovery.Config{
			Backend: backend,
			Logger:  a.logger,
		})
	}
	devices, err := a.discovery.Scan(unsafe)
	if err != nil {
		a.logger.Fatalf(color.Red("failed to run device discovery: %v"), err)
	}
	return devices
}

func requireRoot() error {
	if hostOS == "windows" {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: run again with sudo", errNotRoot)
	}
	return nil
}
