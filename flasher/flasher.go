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

// Package flasher drives the PIC24/dsPIC serial bootloader: it identifies the
// connected device, queries the bootloader firmware version, and programs and
// verifies an Intel-HEX image.
//
// A PicFlasher owns its transport for the whole session and must not be used
// from multiple goroutines.
package flasher

import (
	"fmt"

	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/pic24tools/pic24-fwuploader/transport"
	"github.com/sirupsen/logrus"
	semver "go.bug.st/relaxed-semver"
	"golang.org/x/exp/slices"
)

// State is the position of a session in the protocol state machine.
type State int

const (
	Idle State = iota
	Identified
	VersionKnown
	Programming
	Verifying
	Done
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Identified:
		return "identified"
	case VersionKnown:
		return "version known"
	case Programming:
		return "programming"
	case Verifying:
		return "verifying"
	case Done:
		return "done"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a PicFlasher.
type Option func(*PicFlasher)

// WithProgress sets the sink receiving progress events.
func WithProgress(sink ProgressSink) Option {
	return func(f *PicFlasher) {
		f.progress = sink
	}
}

// WithStrictChecksums makes ProgramHexFile reject hex files with wrong record checksums.
func WithStrictChecksums(strict bool) Option {
	return func(f *PicFlasher) {
		f.strict = strict
	}
}

// PicFlasher is a bootloader session over a transport.
type PicFlasher struct {
	transport transport.Transport
	catalog   *devices.Catalog
	progress  ProgressSink
	strict    bool

	state             State
	device            *devices.Device
	firmwareMajor     int
	firmwareMinor     int
	configBitsEnabled bool
}

// New creates a session talking to the bootloader through t and resolving
// devices through catalog.
func New(t transport.Transport, catalog *devices.Catalog, opts ...Option) *PicFlasher {
	f := &PicFlasher{
		transport:         t,
		catalog:           catalog,
		configBitsEnabled: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current session state.
func (f *PicFlasher) State() State {
	return f.state
}

// Device returns the identified device, or nil.
func (f *PicFlasher) Device() *devices.Device {
	return f.device
}

// ConfigBitsEnabled tells whether configuration rows are programmed.
func (f *PicFlasher) ConfigBitsEnabled() bool {
	return f.configBitsEnabled
}

// FirmwareVersion returns the bootloader firmware version read by GetVersion.
// Version 0 firmwares do not report a version at all.
func (f *PicFlasher) FirmwareVersion() *semver.RelaxedVersion {
	return semver.ParseRelaxed(fmt.Sprintf("%d.%d", f.firmwareMajor, f.firmwareMinor))
}

func (f *PicFlasher) giveProgress(status Status, percent int) {
	if f.progress != nil {
		f.progress.OnProgress(status, percent)
	}
}

// SetMCLR drives the reset line of the device through both RTS and DTR.
func (f *PicFlasher) SetMCLR(level bool) error {
	if err := f.transport.SetControlLine(transport.RTS, level); err != nil {
		logrus.Error(err)
		return err
	}
	if err := f.transport.SetControlLine(transport.DTR, level); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}

// ReadDevice asks the bootloader for the device identity and looks it up in
// the catalog. An unknown device leaves the session idle and returns an
// error wrapping ErrUnknownDevice.
func (f *PicFlasher) ReadDevice() (*devices.Device, error) {
	f.giveProgress(StatusBusy, 0)
	defer f.giveProgress(StatusIdle, 0)

	if err := f.transport.Clear(); err != nil {
		logrus.Error(err)
		return nil, err
	}
	logrus.Debug("Sending READ_ID")
	if err := f.transport.WriteBytes([]byte{protocol.ReadID}); err != nil {
		logrus.Error(err)
		return nil, err
	}
	res := make([]byte, protocol.IDResponseSize)
	if err := f.transport.ReadBytes(res); err != nil {
		logrus.Error(err)
		return nil, err
	}
	identity, err := protocol.ParseIdentity(res)
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	logrus.Debugf("Read %s", identity)

	device := f.catalog.Lookup(identity.DeviceID, identity.ProcessID)
	if device == nil {
		f.device = nil
		f.state = Idle
		err := &UnknownDeviceError{DeviceID: identity.DeviceID, ProcessID: identity.ProcessID}
		logrus.WithField("device_id", fmt.Sprintf("0x%04X", identity.DeviceID)).
			WithField("process_id", fmt.Sprintf("0x%X", identity.ProcessID)).
			Error(err)
		return nil, err
	}
	device.Revision = identity.Revision
	f.device = device
	f.state = Identified
	logrus.Infof("Found %s (%s), revision 0x%04X", device.Name, device.Family, device.Revision)
	return device, nil
}

// GetVersion reads the bootloader firmware version. Version 0 firmwares
// answer with NACK, in that case config bit programming depends on the
// device family. Firmware version 3 and later protect the bootloader pages
// below protocol.ProgramStart.
func (f *PicFlasher) GetVersion() error {
	if f.device == nil {
		err := ErrProtocolNotReady
		logrus.Error(err)
		return err
	}
	f.configBitsEnabled = true
	f.firmwareMajor, f.firmwareMinor = 0, 0

	logrus.Info("Reading firmware version")
	if err := f.transport.WriteBytes([]byte{protocol.ReadVersion}); err != nil {
		logrus.Error(err)
		return err
	}
	major := make([]byte, 1)
	if err := f.transport.ReadBytes(major); err != nil {
		logrus.Error(err)
		return err
	}
	f.state = VersionKnown

	if major[0] == protocol.NACK {
		f.configBitsEnabled = slices.Contains(legacyConfigBitsFamilies, f.device.Family)
		logrus.Warn("Detected firmware version 0: config bits always written for PIC24H, " +
			"but not for PIC24F, PIC24E, or dsPIC33E (last page of program memory skipped for these devices). " +
			"Update to the latest firmware to change this behavior.")
		return nil
	}
	f.firmwareMajor = int(major[0])

	res := make([]byte, 2)
	if err := f.transport.ReadBytes(res); err != nil {
		logrus.Error(err)
		return err
	}
	if res[1] != protocol.ACK {
		logrus.Warnf("Missing ack after firmware version, got 0x%02X", res[1])
		return nil
	}
	f.firmwareMinor = int(res[0])

	logrus.Infof("Firmware version: %d.%d, config bits programming enabled: %t",
		f.firmwareMajor, f.firmwareMinor, f.configBitsEnabled)
	if f.protectsBootloader() {
		logrus.Infof("Firmware v3.0 or later detected, no pages below 0x%X will be written", protocol.ProgramStart)
	}
	return nil
}

func (f *PicFlasher) protectsBootloader() bool {
	return f.firmwareMajor >= 3
}
