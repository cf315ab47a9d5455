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

package globals

import (
	"os"

	"github.com/arduino/go-paths-helper"
	"github.com/pic24tools/pic24-fwuploader/config"
	"github.com/sirupsen/logrus"
)

var (
	// DataDir holds the downloaded device catalogs and the configuration file.
	DataDir = dataDir()
	// DefaultConfigFile is read when --config is not given.
	DefaultConfigFile = DataDir.Join("config.yaml")
	// Config is loaded before any command runs.
	Config = config.Default()
	// ConfigFile is the path Config was loaded from.
	ConfigFile = DefaultConfigFile
	// LogLevel is the --log-level flag value
	LogLevel string
	// Verbose is the --verbose flag value
	Verbose bool
)

func dataDir() *paths.Path {
	if dir, ok := os.LookupEnv("PIC24_FWUPLOADER_DATA_DIR"); ok {
		return paths.New(dir)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		logrus.Warnf("Can't find user configuration directory, using temp dir: %s", err)
		return paths.TempDir().Join("pic24-fwuploader")
	}
	return paths.New(dir, "pic24-fwuploader")
}
