// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3dpipe

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/d3dpipe/native"
)

// Environment variables read by ConfigFromEnv and LoadConfig.
const (
	EnvRasterizer = "NWT_D3D_RASTERIZER"
	EnvTraceLevel = "NWT_TRACE_LEVEL"
	EnvTraceFile  = "NWT_TRACE_FILE"
	EnvForceGPU   = "NWT_D3D_FORCEGPU"
	EnvVSync      = "NWT_D3D_VSYNC"
)

// ErrInvalidConfig is returned when a configuration value cannot be parsed.
var ErrInvalidConfig = errors.New("d3dpipe: invalid configuration")

// Config is the process-wide pipeline configuration.
type Config struct {
	// Rasterizer selects the device type: "hal"/"tnl" (default),
	// "ref"/"rgb" or "nul".
	Rasterizer string `toml:"rasterizer"`

	// TraceLevel is one of none, error, warning, info, verbose, debug.
	TraceLevel string `toml:"trace_level"`

	// TraceFile, when set, receives trace output instead of stderr.
	TraceFile string `toml:"trace_file"`

	// ForceGPU skips the bad-hardware table.
	ForceGPU bool `toml:"force_gpu"`

	// VSync selects a present interval of one instead of immediate.
	VSync bool `toml:"vsync"`

	// SkipOSCheck disables the minimum OS version check.
	SkipOSCheck bool `toml:"skip_os_check"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Rasterizer: "hal",
		TraceLevel: "none",
		VSync:      true,
	}
}

// ConfigFromEnv returns the default configuration overridden by the
// NWT_* environment variables.
func ConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// LoadConfig reads a TOML file and applies environment overrides on top.
// Environment variables win over file values.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("d3dpipe: read config %s: %w", path, err)
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRasterizer); ok && v != "" {
		c.Rasterizer = v
	}
	if v, ok := lookup(EnvTraceLevel); ok && v != "" {
		c.TraceLevel = v
	}
	if v, ok := lookup(EnvTraceFile); ok && v != "" {
		c.TraceFile = v
	}
	if v, ok := lookup(EnvForceGPU); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvForceGPU, v)
		}
		c.ForceGPU = b
	}
	if v, ok := lookup(EnvVSync); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvVSync, v)
		}
		c.VSync = b
	}
	return nil
}

// Validate checks that every value is recognised.
func (c Config) Validate() error {
	if _, err := ParseRasterizer(c.Rasterizer); err != nil {
		return err
	}
	if _, err := ParseTraceLevel(c.TraceLevel); err != nil {
		return err
	}
	return nil
}

// DeviceType returns the device type selected by Rasterizer,
// falling back to hardware.
func (c Config) DeviceType() native.DeviceType {
	t, err := ParseRasterizer(c.Rasterizer)
	if err != nil {
		return native.DeviceTypeHAL
	}
	return t
}

// ParseRasterizer maps a rasterizer name to a device type.
// The empty string selects hardware.
func ParseRasterizer(s string) (native.DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hal", "tnl":
		return native.DeviceTypeHAL, nil
	case "ref", "rgb":
		return native.DeviceTypeRef, nil
	case "nul":
		return native.DeviceTypeNullRef, nil
	}
	return 0, fmt.Errorf("%w: rasterizer %q", ErrInvalidConfig, s)
}
