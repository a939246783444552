package config

import (
	"errors"
	"fmt"
	"gitlab.com/calyxos/image-burner/internal/devicediscovery"
	"gitlab.com/calyxos/image-burner/internal/imagewriter"
	"gopkg.in/yaml.v3"
	"os"
)

const DefaultPath = "/etc/image-burner/config.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Backend is one of auto, udisks, diskutil or blockinfo.
	Backend devicediscovery.BackendName `yaml:"backend"`
	// Unsafe lists and allows writing to non-removable disks.
	Unsafe    bool   `yaml:"unsafe"`
	BlockSize int    `yaml:"blockSize"`
	WorkDir   string `yaml:"workDir"`
	Listen    string `yaml:"listen"`
	Debug     bool   `yaml:"debug"`

	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func Default() *Config {
	return &Config{
		Backend:        devicediscovery.BackendAuto,
		BlockSize:      imagewriter.DefaultBlockSize,
		WorkDir:        os.TempDir(),
		Listen:         "127.0.0.1:8420",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// Load reads a YAML config on top of the defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	config := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidConfig, path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	known := false
	for _, name := range devicediscovery.SupportedBackends {
		if c.Backend == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown backend %q, expected one of %v", ErrInvalidConfig, c.Backend, devicediscovery.SupportedBackends)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: blockSize must be positive, got %v", ErrInvalidConfig, c.BlockSize)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is empty", ErrInvalidConfig)
	}
	return nil
}
