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

// Package firmware contains the commands talking to the bootloader of a device.
package firmware

import (
	"fmt"

	"github.com/pic24tools/pic24-fwuploader/cli/arguments"
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/flasher"
	semver "go.bug.st/relaxed-semver"
)

var commonFlags arguments.Flags // contains port, baud and catalog

// DeviceResult describes the identified device and its bootloader.
type DeviceResult struct {
	Port              string                 `json:"port"`
	Device            *devices.Device        `json:"device"`
	FirmwareVersion   *semver.RelaxedVersion `json:"firmware_version"`
	ConfigBitsEnabled bool                   `json:"config_bits_enabled"`
}

func newDeviceResult(port string, f *flasher.PicFlasher) *DeviceResult {
	return &DeviceResult{
		Port:              port,
		Device:            f.Device(),
		FirmwareVersion:   f.FirmwareVersion(),
		ConfigBitsEnabled: f.ConfigBitsEnabled(),
	}
}

func (r *DeviceResult) String() string {
	configBits := "disabled"
	if r.ConfigBitsEnabled {
		configBits = "enabled"
	}
	return fmt.Sprintf("Device %s (%s) on %s\n"+
		"  Device ID: 0x%04X, process ID: %d, revision: 0x%04X\n"+
		"  Bootloader firmware version: %s, config bits programming %s",
		r.Device.Name, r.Device.Family, r.Port,
		r.Device.ID, r.Device.ProcessID, r.Device.Revision,
		r.FirmwareVersion, configBits)
}

func (r *DeviceResult) Data() interface{} {
	return r
}
