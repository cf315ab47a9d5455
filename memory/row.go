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

// Package memory models the program, EEPROM and configuration spaces of a
// device as fixed size rows, the unit used both by the hex file address map
// and by the bootloader's program and read commands.
package memory

import (
	"fmt"

	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/pic24tools/pic24-fwuploader/transport"
)

// Type is the memory region a row belongs to.
type Type int

const (
	Program Type = iota
	EEProm
	Configuration
)

func (t Type) String() string {
	switch t {
	case Program:
		return "program"
	case EEProm:
		return "eeprom"
	case Configuration:
		return "configuration"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// AckError is returned when the device does not acknowledge a row write.
type AckError struct {
	Type    Type
	Address uint32
	Got     byte
}

func (e *AckError) Error() string {
	return fmt.Sprintf("missing ack writing %s row at 0x%06X: got 0x%02X", e.Type, e.Address, e.Got)
}

// Row is one row of one memory region.
//
// Every unit of a row (a 24 bit instruction, an EEPROM word or a
// configuration word) spans two word addresses of the hex file. The second
// word of a program instruction carries the upper byte and the phantom
// byte, which is not stored on the device.
type Row struct {
	memType   Type
	address   uint32
	rowNumber int
	rowSize   int

	// words are the hex file words indexed by address offset, nil while empty
	words  []uint16
	buffer []byte
}

// NewRow creates an empty row. programRowSize is only used for program rows.
func NewRow(memType Type, base uint32, rowNumber int, programRowSize int) *Row {
	r := &Row{
		memType:   memType,
		rowNumber: rowNumber,
	}
	switch memType {
	case Program:
		r.rowSize = programRowSize
	case EEProm:
		r.rowSize = protocol.EE30FRowSize
	case Configuration:
		r.rowSize = 1
	}
	r.address = base + uint32(rowNumber*r.Span())
	return r
}

// Type returns the region of the row.
func (r *Row) Type() Type { return r.memType }

// Address returns the word address of the first unit of the row.
func (r *Row) Address() uint32 { return r.address }

// RowNumber returns the index of the row inside its region.
func (r *Row) RowNumber() int { return r.rowNumber }

// RowSize returns the number of units (instructions or data words) in the row.
func (r *Row) RowSize() int { return r.rowSize }

// Span returns the number of word addresses covered by the row.
func (r *Row) Span() int { return r.rowSize * 2 }

// Contains tells if address falls in the row.
func (r *Row) Contains(address uint32) bool {
	return address >= r.address && address < r.address+uint32(r.Span())
}

// IsEmpty is true until a word is inserted.
func (r *Row) IsEmpty() bool { return r.words == nil }

// InsertData stores word at address if the address belongs to the row.
func (r *Row) InsertData(address uint32, word uint16) bool {
	if !r.Contains(address) {
		return false
	}
	if r.words == nil {
		r.words = make([]uint16, r.Span())
		for i := range r.words {
			r.words[i] = protocol.ErasedWord
		}
	}
	r.words[address-r.address] = word
	return true
}

// bufferSize is the number of bytes exchanged with the device for this row.
func (r *Row) bufferSize() int {
	switch r.memType {
	case EEProm:
		return r.rowSize * 2
	default:
		return r.rowSize * 3
	}
}

// FormatData lays out the inserted words as the device expects them on the
// wire. It must be called once all the words of the image are inserted.
// Empty rows are left untouched.
func (r *Row) FormatData() {
	if r.IsEmpty() {
		return
	}
	r.buffer = make([]byte, r.bufferSize())
	switch r.memType {
	case Program, Configuration:
		for i := 0; i < r.rowSize; i++ {
			r.buffer[3*i] = byte(r.words[2*i] >> 8)
			r.buffer[3*i+1] = byte(r.words[2*i])
			r.buffer[3*i+2] = byte(r.words[2*i+1] >> 8)
		}
	case EEProm:
		for i := 0; i < r.rowSize; i++ {
			r.buffer[2*i] = byte(r.words[2*i] >> 8)
			r.buffer[2*i+1] = byte(r.words[2*i])
		}
	}
}

// Byte returns the byte at offset of the formatted (or read back) buffer.
// Rows never formatted nor read read as erased.
func (r *Row) Byte(offset int) byte {
	if r.buffer == nil {
		return 0xFF
	}
	return r.buffer[offset]
}

// Bytes returns a copy of the formatted buffer.
func (r *Row) Bytes() []byte {
	if r.buffer == nil {
		return nil
	}
	return append([]byte(nil), r.buffer...)
}

// Instruction returns the 24 bit value of unit index, least significant byte first.
func (r *Row) Instruction(index int) uint32 {
	return uint32(r.Byte(3*index)) | uint32(r.Byte(3*index+1))<<8 | uint32(r.Byte(3*index+2))<<16
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := *r
	if r.words != nil {
		c.words = append([]uint16(nil), r.words...)
	}
	if r.buffer != nil {
		c.buffer = append([]byte(nil), r.buffer...)
	}
	return &c
}

// SendData writes the row to the device and waits for the acknowledge.
// Empty rows are sent too, callers decide what to skip.
func (r *Row) SendData(t transport.Transport) error {
	if r.buffer == nil {
		r.buffer = make([]byte, r.bufferSize())
		for i := range r.buffer {
			r.buffer[i] = 0xFF
		}
	}

	var frame []byte
	switch r.memType {
	case Program:
		frame = append([]byte{protocol.WritePM}, protocol.AddressBytes(r.address)...)
		frame = append(frame, r.buffer...)
	case EEProm:
		frame = append([]byte{protocol.WriteEE}, protocol.AddressBytes(r.address)...)
		frame = append(frame, r.buffer...)
	case Configuration:
		frame = append([]byte{protocol.WriteCM}, protocol.AddressBytes(r.address)...)
		frame = append(frame, r.buffer[0], r.buffer[1])
	}
	if err := t.WriteBytes(frame); err != nil {
		return err
	}

	ack := make([]byte, 1)
	if err := t.ReadBytes(ack); err != nil {
		return err
	}
	if ack[0] != protocol.ACK {
		return &AckError{Type: r.memType, Address: r.address, Got: ack[0]}
	}
	return nil
}

// ReadData replaces the row buffer with the device content at the row address.
func (r *Row) ReadData(t transport.Transport) error {
	var command byte
	switch r.memType {
	case Program:
		command = protocol.ReadPM
	case EEProm:
		command = protocol.ReadEE
	case Configuration:
		command = protocol.ReadCM
	}
	if err := t.WriteBytes(append([]byte{command}, protocol.AddressBytes(r.address)...)); err != nil {
		return err
	}
	buffer := make([]byte, r.bufferSize())
	if err := t.ReadBytes(buffer); err != nil {
		return err
	}
	r.buffer = buffer
	return nil
}
