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

// Package transport abstracts the byte stream used to talk to the
// bootloader. The driver only depends on the Transport interface, the
// Serial implementation drives a real serial port.
package transport

import "fmt"

// ControlLine names a modem control line of the link.
type ControlLine int

const (
	RTS ControlLine = iota
	DTR
)

func (l ControlLine) String() string {
	switch l {
	case RTS:
		return "RTS"
	case DTR:
		return "DTR"
	}
	return fmt.Sprintf("ControlLine(%d)", int(l))
}

// Transport is a blocking, byte oriented link to the device.
type Transport interface {
	// Clear discards any pending input.
	Clear() error
	// WriteBytes writes the whole buffer.
	WriteBytes(data []byte) error
	// ReadBytes fills the whole buffer, blocking until it is complete or the
	// link gives up.
	ReadBytes(buffer []byte) error
	// SetControlLine drives a modem control line.
	SetControlLine(line ControlLine, level bool) error
}
