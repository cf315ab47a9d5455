/*
	pic24-fwuploader
	Copyright (c) 2026 The pic24-fwuploader Authors.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config reads the optional YAML configuration file holding the
// defaults of the device facing commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaud        = 230400
	DefaultReadTimeout = 5 * time.Second
	DefaultRetries     = 3
)

// Config holds the values that can be set in the configuration file.
// Command line flags override them.
type Config struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// Devices is the path of a device catalog, empty for the embedded one.
	Devices        string        `yaml:"devices"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	Retries        int           `yaml:"retries"`
	MCLR           bool          `yaml:"mclr"`
	StrictChecksum bool          `yaml:"strict_checksum"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
		Retries:     DefaultRetries,
	}
}

// Load reads the configuration file at path. Keys missing from the file keep
// their default value. A missing file is an error only if mustExist is set.
func Load(path *paths.Path, mustExist bool) (*Config, error) {
	cfg := Default()
	data, err := path.ReadFile()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			logrus.Debugf("No configuration file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	logrus.Debugf("Loaded configuration from %s", path)
	return cfg, nil
}

// Validate checks the values are usable.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries should be at least 1, got %d", c.Retries)
	}
	return nil
}

// Write stores the configuration at path, creating the parent directories.
func (c *Config) Write(path *paths.Path) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := path.Parent().MkdirAll(); err != nil {
		return err
	}
	return path.WriteFile(data)
}
