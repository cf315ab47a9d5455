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

// Package protocol holds the command bytes and memory map shared by the
// host driver and the PIC24/dsPIC serial bootloader firmware. The byte values
// are defined by the device firmware and must not change.
package protocol

import "fmt"

// Command bytes understood by the bootloader firmware.
const (
	NACK byte = 0x00
	ACK  byte = 0x01

	ReadPM      byte = 0x02
	WritePM     byte = 0x03
	ReadEE      byte = 0x04
	WriteEE     byte = 0x05
	ReadCM      byte = 0x06
	WriteCM     byte = 0x07
	Reset       byte = 0x08
	ReadID      byte = 0x09
	ReadVersion byte = 0x11
	PORReset    byte = 0x13
)

// Memory map of the supported families. Row sizes are in instructions
// (program rows) or data words (EEPROM rows); every unit occupies two
// word addresses in the hex file address space.
const (
	// ProgramStart is the first word address available to user code when
	// the bootloader protects its own pages.
	ProgramStart = 0xC00

	// ReservedStart is the beginning of the bootloader's reserved window.
	ReservedStart = 0x200

	// BootloaderPage is the page the bootloader itself lives in.
	BootloaderPage = 0x400

	PM30FRowSize      = 32
	PM33FRowSizeSmall = 64
	PM33FRowSizeLarge = 64 * 8
	PIC24FKRowSize    = 32
	EE30FRowSize      = 16

	PMSize = 1536
	EESize = 128
	CMSize = 8

	ProgramBase       = 0x000000
	EEPROMBase        = 0x7FF000
	ConfigurationBase = 0xF80000

	// ErasedWord is the value of an unprogrammed flash word.
	ErasedWord = 0xFFFF
)

// IDResponseSize is the length of the READ_ID reply.
const IDResponseSize = 8

// Identity is the decoded READ_ID reply.
type Identity struct {
	DeviceID  uint16
	ProcessID uint16
	Revision  uint16
}

func (i Identity) String() string {
	return fmt.Sprintf("device id 0x%04X, process id 0x%X, revision 0x%04X", i.DeviceID, i.ProcessID, i.Revision)
}

// ParseIdentity decodes the 8 bytes returned by READ_ID.
func ParseIdentity(data []byte) (Identity, error) {
	if len(data) != IDResponseSize {
		return Identity{}, fmt.Errorf("invalid id response length: got %d, expected %d", len(data), IDResponseSize)
	}
	return Identity{
		DeviceID:  uint16(data[1])<<8 | uint16(data[0]),
		ProcessID: uint16(data[5] >> 4),
		Revision:  uint16(data[5])<<8 | uint16(data[4]),
	}, nil
}

// AddressBytes encodes a 24-bit device address, least significant byte first.
func AddressBytes(address uint32) []byte {
	return []byte{byte(address), byte(address >> 8), byte(address >> 16)}
}

// DecodeAddress is the inverse of AddressBytes.
func DecodeAddress(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// BuildReadPMCmd builds the READ_PM request for the row starting at address.
func BuildReadPMCmd(address uint32) []byte {
	return append([]byte{ReadPM}, AddressBytes(address)...)
}
