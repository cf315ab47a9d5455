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

package flasher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDevice is returned when the identified device is not in the
	// catalog. The caller may retry, for example at another baud rate.
	ErrUnknownDevice = errors.New("refusing to program unknown device, check device or baud rate")
	// ErrProtocolNotReady is returned when an operation needs an identified device.
	ErrProtocolNotReady = errors.New("device not read, or unknown device")
	// ErrUnsupportedFirmware is returned for bootloader firmware version 0,
	// whose reset vector handling is not supported.
	ErrUnsupportedFirmware = errors.New("programming through firmware version 0 is not supported, update the bootloader firmware")
)

// FlasherError reports a failed exchange with the bootloader.
type FlasherError struct {
	err   string
	cause error
}

func (e FlasherError) Error() string {
	if e.cause == nil {
		return e.err
	}
	return e.err + ": " + e.cause.Error()
}

func (e FlasherError) Unwrap() error {
	return e.cause
}

// UnknownDeviceError carries the identity read from a device missing from the catalog.
type UnknownDeviceError struct {
	DeviceID  uint16
	ProcessID uint16
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("device id 0x%04X, process id 0x%X: %s", e.DeviceID, e.ProcessID, ErrUnknownDevice)
}

func (e *UnknownDeviceError) Unwrap() error {
	return ErrUnknownDevice
}

// ClashKind tells which bootloader protection rejected a hex word.
type ClashKind int

const (
	// PageClash is data starting on the bootloader page.
	PageClash ClashKind = iota
	// ReservedWordClash is data in the bootloader reserved window.
	ReservedWordClash
	// ConfigRegionClash is code on the configuration page while config bit
	// programming is disabled.
	ConfigRegionClash
)

func (k ClashKind) String() string {
	switch k {
	case PageClash:
		return "program address clashes with bootloader location"
	case ReservedWordClash:
		return "program data clashes with bootloader"
	case ConfigRegionClash:
		return "configuration bit programming is not enabled, but data exists on the last page of flash"
	}
	return fmt.Sprintf("ClashKind(%d)", int(k))
}

// AddressClashError aborts a programming session before anything is sent.
type AddressClashError struct {
	Kind    ClashKind
	Line    int
	Address uint32
	Data    uint16
}

func (e *AddressClashError) Error() string {
	return fmt.Sprintf("line %d: %s at 0x%06X (data 0x%04X)", e.Line, e.Kind, e.Address, e.Data)
}

// Mismatch is a program word read back with a different value.
type Mismatch struct {
	Address  uint32
	Expected uint32
	Got      uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("verification failed at address 0x%06X: expected 0x%06X, got 0x%06X", m.Address, m.Expected, m.Got)
}

// NackError is a row the device did not return during verification.
type NackError struct {
	Address uint32
	Err     error
}

func (e *NackError) Error() string {
	return fmt.Sprintf("problem reading program memory at 0x%06X during verification: %s", e.Address, e.Err)
}

func (e *NackError) Unwrap() error {
	return e.Err
}

// VerificationError collects every failed row of a verification pass.
type VerificationError struct {
	Mismatches   []Mismatch
	ReadFailures []*NackError
}

func (e *VerificationError) Error() string {
	var msgs []string
	for _, m := range e.Mismatches {
		msgs = append(msgs, m.String())
	}
	for _, f := range e.ReadFailures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("verification failed: %d rows mismatched, %d rows unreadable: %s",
		len(e.Mismatches), len(e.ReadFailures), strings.Join(msgs, "; "))
}

func (e *VerificationError) empty() bool {
	return len(e.Mismatches) == 0 && len(e.ReadFailures) == 0
}
