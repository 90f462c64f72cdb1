package bluez

import (
	"io/ioutil"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// OffMode selects what "off" means for the controller.
type OffMode int

const (
	// OffModeNoScan keeps the device up with scanning disabled.
	OffModeNoScan OffMode = iota
	// OffModeDevDown brings the device down.
	OffModeDevDown
)

// Config holds daemon wide defaults. Stored per-adapter settings win over these.
type Config struct {
	OffMode             OffMode       `json:"-"`
	OffModeName         string        `json:"offmode"`
	StartupMode         string        `json:"mode"`
	OnMode              string        `json:"onmode"`
	DiscoverableTimeout uint32        `json:"discovto"`
	StorageDir          string        `json:"storage"`
	Name                string        `json:"name"`
	Class               uint32        `json:"class"`
	CommandTimeout      time.Duration `json:"-"`
	CommandTimeoutMs    int           `json:"cmdtimeout"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		OffMode:             OffModeNoScan,
		OffModeName:         "noscan",
		StartupMode:         "connectable",
		OnMode:              "connectable",
		DiscoverableTimeout: 180,
		StorageDir:          "/var/lib/bluetooth",
		Name:                "BlueZ",
		Class:               0x000100,
		CommandTimeout:      3 * time.Second,
		CommandTimeoutMs:    3000,
	}
}

// An Option is a configuration function, which configures the daemon.
type Option func(*Config) error

// OptConfigFile overlays settings from a JSON file.
func OptConfigFile(path string) Option {
	return func(c *Config) error {
		in, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "can't read config")
		}
		if err := jsoniter.Unmarshal(in, c); err != nil {
			return errors.Wrapf(err, "can't parse config %s", path)
		}
		return c.normalize()
	}
}

// OptOffMode sets the off policy, "noscan" or "devdown".
func OptOffMode(name string) Option {
	return func(c *Config) error {
		c.OffModeName = name
		return c.normalize()
	}
}

// OptStorageDir sets the root directory for per-adapter state.
func OptStorageDir(dir string) Option {
	return func(c *Config) error {
		c.StorageDir = dir
		return nil
	}
}

// OptDiscoverableTimeout sets the default discoverable timeout in seconds.
func OptDiscoverableTimeout(secs uint32) Option {
	return func(c *Config) error {
		c.DiscoverableTimeout = secs
		return nil
	}
}

// OptStartupMode sets the mode used when nothing has been stored yet.
func OptStartupMode(mode string) Option {
	return func(c *Config) error {
		if ParseMode(mode, ModeConnectable) == ModeUnknown {
			return errors.Errorf("invalid mode %q", mode)
		}
		c.StartupMode = mode
		return nil
	}
}

// OptName sets the default local name.
func OptName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// OptCommandTimeout bounds every controller round trip.
func OptCommandTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.CommandTimeout = d
		c.CommandTimeoutMs = int(d / time.Millisecond)
		return nil
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) (Config, error) {
	c := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (c *Config) normalize() error {
	switch c.OffModeName {
	case "", "noscan":
		c.OffMode = OffModeNoScan
	case "devdown":
		c.OffMode = OffModeDevDown
	default:
		return errors.Errorf("invalid offmode %q", c.OffModeName)
	}
	if c.CommandTimeoutMs > 0 {
		c.CommandTimeout = time.Duration(c.CommandTimeoutMs) * time.Millisecond
	}
	return nil
}
