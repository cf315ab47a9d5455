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

// Package transporttest provides a simulated bootloader reachable through
// the transport.Transport interface. It records every frame it receives so
// tests can assert on what the driver sent.
package transporttest

import (
	"fmt"

	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/pic24tools/pic24-fwuploader/transport"
)

// Frame is one command received by the device.
type Frame struct {
	Command byte
	Address uint32
	Data    []byte
}

// LineEvent records a control line change.
type LineEvent struct {
	Line  transport.ControlLine
	Level bool
}

// Device simulates the bootloader firmware. Each WriteBytes call must carry
// exactly one command frame.
type Device struct {
	// IDResponse is returned to READ_ID.
	IDResponse []byte
	// VersionResponse is returned to READ_VERSION.
	VersionResponse []byte
	// ProgramRowSize is the number of instructions returned by READ_PM.
	ProgramRowSize int
	// AckByte is returned after row writes.
	AckByte byte

	// FailReadAt makes the READ_PM of these addresses fail.
	FailReadAt map[uint32]bool
	// Corrupt overrides the stored instructions on read back.
	Corrupt map[uint32][3]byte

	Frames      []Frame
	Clears      int
	LineHistory []LineEvent

	program map[uint32][3]byte
	eeprom  map[uint32][2]byte
	config  map[uint32][2]byte
	pending []byte
	readErr error
}

// NewDevice returns a device answering READ_ID with the given identity and
// READ_VERSION with major.minor followed by ACK.
func NewDevice(deviceID uint16, processID, revision byte, programRowSize int) *Device {
	return &Device{
		IDResponse:      []byte{byte(deviceID), byte(deviceID >> 8), 0, 0, revision, processID << 4, 0, 0},
		VersionResponse: []byte{3, 0, protocol.ACK},
		ProgramRowSize:  programRowSize,
		AckByte:         protocol.ACK,
		FailReadAt:      map[uint32]bool{},
		Corrupt:         map[uint32][3]byte{},
		program:         map[uint32][3]byte{},
		eeprom:          map[uint32][2]byte{},
		config:          map[uint32][2]byte{},
	}
}

// SetVersion makes the device report firmware major.minor.
func (d *Device) SetVersion(major, minor byte) {
	d.VersionResponse = []byte{major, minor, protocol.ACK}
}

// SetLegacy makes the device answer READ_VERSION with NACK, like version 0 firmware.
func (d *Device) SetLegacy() {
	d.VersionResponse = []byte{protocol.NACK}
}

// Clear implements transport.Transport.
func (d *Device) Clear() error {
	d.Clears++
	d.pending = nil
	return nil
}

// SetControlLine implements transport.Transport.
func (d *Device) SetControlLine(line transport.ControlLine, level bool) error {
	d.LineHistory = append(d.LineHistory, LineEvent{Line: line, Level: level})
	return nil
}

// ReadBytes implements transport.Transport.
func (d *Device) ReadBytes(buffer []byte) error {
	if d.readErr != nil {
		err := d.readErr
		d.readErr = nil
		d.pending = nil
		return err
	}
	if len(d.pending) < len(buffer) {
		return fmt.Errorf("timeout: %d bytes pending, %d requested", len(d.pending), len(buffer))
	}
	copy(buffer, d.pending)
	d.pending = d.pending[len(buffer):]
	return nil
}

// WriteBytes implements transport.Transport.
func (d *Device) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty frame")
	}
	frame := Frame{Command: data[0]}
	if len(data) >= 4 {
		frame.Address = protocol.DecodeAddress(data[1:4])
		frame.Data = append([]byte(nil), data[4:]...)
	}
	d.Frames = append(d.Frames, frame)

	switch frame.Command {
	case protocol.ReadID:
		d.pending = append(d.pending, d.IDResponse...)
	case protocol.ReadVersion:
		d.pending = append(d.pending, d.VersionResponse...)
	case protocol.WritePM:
		for i := 0; i+3 <= len(frame.Data); i += 3 {
			d.program[frame.Address+uint32(i/3*2)] = [3]byte{frame.Data[i], frame.Data[i+1], frame.Data[i+2]}
		}
		d.pending = append(d.pending, d.AckByte)
	case protocol.WriteEE:
		for i := 0; i+2 <= len(frame.Data); i += 2 {
			d.eeprom[frame.Address+uint32(i)] = [2]byte{frame.Data[i], frame.Data[i+1]}
		}
		d.pending = append(d.pending, d.AckByte)
	case protocol.WriteCM:
		d.config[frame.Address] = [2]byte{frame.Data[0], frame.Data[1]}
		d.pending = append(d.pending, d.AckByte)
	case protocol.ReadPM:
		if d.FailReadAt[frame.Address] {
			d.readErr = fmt.Errorf("no response reading 0x%06X", frame.Address)
			return nil
		}
		for i := 0; i < d.ProgramRowSize; i++ {
			b := d.Instruction(frame.Address + uint32(i*2))
			d.pending = append(d.pending, b[:]...)
		}
	case protocol.ReadEE:
		for i := 0; i < protocol.EE30FRowSize; i++ {
			b, ok := d.eeprom[frame.Address+uint32(i*2)]
			if !ok {
				b = [2]byte{0xFF, 0xFF}
			}
			d.pending = append(d.pending, b[:]...)
		}
	case protocol.ReadCM:
		b, ok := d.config[frame.Address]
		if !ok {
			b = [2]byte{0xFF, 0xFF}
		}
		d.pending = append(d.pending, b[0], b[1], 0x00)
	case protocol.Reset, protocol.PORReset:
	default:
		return fmt.Errorf("unknown command 0x%02X", frame.Command)
	}
	return nil
}

// Instruction returns the stored instruction at address as read back by the device.
func (d *Device) Instruction(address uint32) [3]byte {
	if b, ok := d.Corrupt[address]; ok {
		return b
	}
	if b, ok := d.program[address]; ok {
		return b
	}
	return [3]byte{0xFF, 0xFF, 0xFF}
}

// ConfigWord returns the configuration bytes written at address.
func (d *Device) ConfigWord(address uint32) ([2]byte, bool) {
	b, ok := d.config[address]
	return b, ok
}

// FramesWith returns the received frames carrying command.
func (d *Device) FramesWith(command byte) []Frame {
	var res []Frame
	for _, f := range d.Frames {
		if f.Command == command {
			res = append(res, f)
		}
	}
	return res
}

// WriteFrames returns the received row write frames of any region.
func (d *Device) WriteFrames() []Frame {
	var res []Frame
	for _, f := range d.Frames {
		switch f.Command {
		case protocol.WritePM, protocol.WriteEE, protocol.WriteCM:
			res = append(res, f)
		}
	}
	return res
}
