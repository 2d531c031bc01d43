// Package config holds the settings of a kyo workspace and loads them
// from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the location
// of the config file.
const EnvPath = "KYO_CONFIG"

type Decorations string

const (
	DecorationsServer Decorations = "server"
	DecorationsClient Decorations = "client"
)

type PresentMode string

const (
	PresentFIFO    PresentMode = "fifo"
	PresentMailbox PresentMode = "mailbox"
)

type Format string

const (
	FormatARGB8888 Format = "argb8888"
	FormatXRGB8888 Format = "xrgb8888"
)

type Config struct {
	// Display overrides $WAYLAND_DISPLAY. It may be a socket name
	// relative to $XDG_RUNTIME_DIR or an absolute path.
	Display string `yaml:"display"`

	// AppID is used as the xdg app ID and title of windows that don't
	// set their own.
	AppID string `yaml:"app_id"`

	// DispatchTimeout is the longest a single poll waits for the
	// compositor.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// DefaultSize is used for surfaces whose first configure leaves
	// the size up to the client.
	DefaultSize Size `yaml:"default_size"`

	Decorations Decorations `yaml:"decorations"`
	Swapchain   Swapchain   `yaml:"swapchain"`

	// CloseQueue is the capacity of the queue of close requests posted
	// from other goroutines.
	CloseQueue int `yaml:"close_queue"`

	// ExitOnLastClose stops the event loop once every surface that was
	// created has closed.
	ExitOnLastClose bool `yaml:"exit_on_last_close"`

	LogLevel string `yaml:"log_level"`
}

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Swapchain struct {
	Images      int         `yaml:"images"`
	PresentMode PresentMode `yaml:"present_mode"`
	Format      Format      `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		AppID:           "kyo",
		DispatchTimeout: 16 * time.Millisecond,
		DefaultSize:     Size{Width: 640, Height: 480},
		Decorations:     DecorationsServer,
		Swapchain: Swapchain{
			Images:      2,
			PresentMode: PresentFIFO,
			Format:      FormatARGB8888,
		},
		CloseQueue:      16,
		ExitOnLastClose: true,
		LogLevel:        "warn",
	}
}

// ValidationError reports an invalid setting by its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (c *Config) Validate() error {
	if c.DispatchTimeout < 0 {
		return &ValidationError{Path: "dispatch_timeout", Err: errors.New("must not be negative")}
	}
	if c.DefaultSize.Width <= 0 || c.DefaultSize.Height <= 0 {
		return &ValidationError{Path: "default_size", Err: errors.New("width and height must be positive")}
	}
	switch c.Decorations {
	case DecorationsServer, DecorationsClient:
	default:
		return &ValidationError{Path: "decorations", Err: fmt.Errorf("must be one of: server, client")}
	}
	if c.Swapchain.Images < 2 || c.Swapchain.Images > 4 {
		return &ValidationError{Path: "swapchain.images", Err: fmt.Errorf("must be between 2 and 4, got %v", c.Swapchain.Images)}
	}
	switch c.Swapchain.PresentMode {
	case PresentFIFO, PresentMailbox:
	default:
		return &ValidationError{Path: "swapchain.present_mode", Err: fmt.Errorf("must be one of: fifo, mailbox")}
	}
	switch c.Swapchain.Format {
	case FormatARGB8888, FormatXRGB8888:
	default:
		return &ValidationError{Path: "swapchain.format", Err: fmt.Errorf("must be one of: argb8888, xrgb8888")}
	}
	if c.CloseQueue <= 0 {
		return &ValidationError{Path: "close_queue", Err: errors.New("must be positive")}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	return nil
}

// DefaultPath returns the location of the config file: $KYO_CONFIG if
// it is set, otherwise kyo/config.yaml in the user's config directory.
func DefaultPath() (string, error) {
	if path, ok := os.LookupEnv(EnvPath); ok && path != "" {
		return path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "kyo", "config.yaml"), nil
}

// Load reads the config file from its default location. A missing
// file in the user's config directory yields the defaults, but a
// missing file named by $KYO_CONFIG is an error.
func Load() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Config{}, err
	}

	_, explicit := os.LookupEnv(EnvPath)
	cfg, err := LoadFromPath(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	return cfg, err
}

// LoadFromPath reads the config file at path. Settings that the file
// doesn't mention keep their default values.
func LoadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%v: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a config document. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
