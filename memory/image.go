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

package memory

import (
	"fmt"

	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/protocol"
)

// AddressOutOfRangeError is returned when a word does not map to any row.
type AddressOutOfRangeError struct {
	Address uint32
}

func (e *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf("bad hex file: 0x%06X out of range", e.Address)
}

// ProgramRowSize returns the program row size, in instructions, used for a
// programming session on a device of the given family.
func ProgramRowSize(family devices.Family, smallRAM bool) int {
	switch {
	case family == devices.PIC24FK:
		return protocol.PIC24FKRowSize
	case smallRAM:
		return protocol.PM33FRowSizeSmall
	default:
		return protocol.PM33FRowSizeLarge
	}
}

// LegacyRowSize returns the program row size used by version 0 firmware.
func LegacyRowSize(family devices.Family, smallRAM bool) int {
	if family == devices.DsPIC30F {
		return protocol.PM30FRowSize
	}
	return ProgramRowSize(family, smallRAM)
}

type region struct {
	memType Type
	base    uint32
	first   int
	count   int
}

// Image is the full set of rows of a device: program rows, then EEPROM
// rows, then configuration rows.
type Image struct {
	rows    []*Row
	regions []region
}

// NewImage allocates an empty image using programRowSize instructions per program row.
func NewImage(programRowSize int) *Image {
	img := &Image{
		rows: make([]*Row, 0, protocol.PMSize+protocol.EESize+protocol.CMSize),
	}
	img.addRegion(Program, protocol.ProgramBase, protocol.PMSize, programRowSize)
	img.addRegion(EEProm, protocol.EEPROMBase, protocol.EESize, programRowSize)
	img.addRegion(Configuration, protocol.ConfigurationBase, protocol.CMSize, programRowSize)
	return img
}

func (img *Image) addRegion(memType Type, base uint32, count int, programRowSize int) {
	img.regions = append(img.regions, region{memType: memType, base: base, first: len(img.rows), count: count})
	for row := 0; row < count; row++ {
		img.rows = append(img.rows, NewRow(memType, base, row, programRowSize))
	}
}

// InsertData stores word in the first row, in region order, that contains address.
// It returns false when no row does.
func (img *Image) InsertData(address uint32, word uint16) bool {
	for _, reg := range img.regions {
		if address < reg.base {
			continue
		}
		span := uint32(img.rows[reg.first].Span())
		index := (address - reg.base) / span
		if index >= uint32(reg.count) {
			continue
		}
		return img.rows[reg.first+int(index)].InsertData(address, word)
	}
	return false
}

// FormatData formats every row. Call once, after all insertions.
func (img *Image) FormatData() {
	for _, row := range img.rows {
		row.FormatData()
	}
}

// Rows returns all the rows in region order.
func (img *Image) Rows() []*Row {
	return img.rows
}

// RegionRows returns the rows of one region.
func (img *Image) RegionRows(memType Type) []*Row {
	for _, reg := range img.regions {
		if reg.memType == memType {
			return img.rows[reg.first : reg.first+reg.count]
		}
	}
	return nil
}

// CountNonEmpty returns the number of non empty rows, in total and in program memory.
func (img *Image) CountNonEmpty() (rows, programRows int) {
	for _, row := range img.rows {
		if row.IsEmpty() {
			continue
		}
		rows++
		if row.Type() == Program {
			programRows++
		}
	}
	return rows, programRows
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	c := &Image{
		rows:    make([]*Row, len(img.rows)),
		regions: append([]region(nil), img.regions...),
	}
	for i, row := range img.rows {
		c.rows[i] = row.Clone()
	}
	return c
}
