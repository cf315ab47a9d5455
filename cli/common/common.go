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

package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/pic24tools/pic24-fwuploader/cli/arguments"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/flasher"
	"github.com/pic24tools/pic24-fwuploader/transport"
	"github.com/sirupsen/logrus"
)

var (
	retryDelay  = time.Second
	mclrPulse   = 100 * time.Millisecond
	mclrRelease = 500 * time.Millisecond
)

// CheckFlags runs a basic check, errors if the flags are not usable
func CheckFlags(flags *arguments.Flags) {
	if flags.Port == "" {
		feedback.Fatal("Error: missing serial port, use --port or set port in the configuration file", feedback.ErrBadArgument)
	}
	if flags.Baud <= 0 {
		feedback.Fatal(fmt.Sprintf("Invalid baud rate: %d", flags.Baud), feedback.ErrBadArgument)
	}
	if flags.Retries < 1 {
		feedback.Fatal("Number of retries should be at least 1", feedback.ErrBadArgument)
	}
	logrus.Debugf("port: %s, baud: %d", flags.Port, flags.Baud)
}

// LoadCatalog returns the catalog at catalogPath, or the embedded one if
// catalogPath is empty.
func LoadCatalog(catalogPath string) *devices.Catalog {
	if catalogPath == "" {
		catalog := devices.Default()
		logrus.Debugf("Using embedded catalog with %d devices", catalog.Len())
		return catalog
	}
	catalog, err := devices.Load(paths.New(catalogPath))
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Can't load device catalog: %s", err), feedback.ErrGeneric)
	}
	logrus.Debugf("Loaded %d devices from %s", catalog.Len(), catalogPath)
	return catalog
}

// Connect opens the serial port and identifies the device. The caller must
// close the returned port.
func Connect(flags *arguments.Flags, opts ...flasher.Option) (*transport.Serial, *flasher.PicFlasher, *devices.Device) {
	catalog := LoadCatalog(flags.Devices)

	port, err := transport.OpenSerial(flags.Port, flags.Baud, flags.Timeout)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error opening serial port %s: %s", flags.Port, err), feedback.ErrDevice)
	}

	f := flasher.New(port, catalog, opts...)
	if flags.MCLR {
		if err := PulseMCLR(f); err != nil {
			port.Close()
			feedback.Fatal(fmt.Sprintf("Error resetting device: %s", err), feedback.ErrDevice)
		}
	}

	device, err := Identify(f, flags.Retries)
	if err != nil {
		port.Close()
		feedback.Fatal(fmt.Sprintf("Error identifying device: %s", err), feedback.ErrDevice)
	}
	return port, f, device
}

// PulseMCLR resets the device so that the bootloader starts.
func PulseMCLR(f *flasher.PicFlasher) error {
	logrus.Info("Resetting device through MCLR")
	if err := f.SetMCLR(true); err != nil {
		return err
	}
	time.Sleep(mclrPulse)
	if err := f.SetMCLR(false); err != nil {
		return err
	}
	time.Sleep(mclrRelease)
	return nil
}

// Identify reads the device identity, retrying up to retries times.
func Identify(f *flasher.PicFlasher, retries int) (*devices.Device, error) {
	retry := 0
	for {
		retry++
		logrus.Infof("Identifying device (try %d of %d)", retry, retries)

		device, err := f.ReadDevice()
		if err == nil {
			return device, nil
		}
		if retry >= retries {
			if errors.Is(err, flasher.ErrUnknownDevice) {
				return nil, fmt.Errorf("%w (is the baud rate right?)", err)
			}
			return nil, err
		}

		logrus.Info("Waiting 1 second before retrying...")
		time.Sleep(retryDelay)
	}
}
