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
	"errors"
	"io"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/hexfile"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/pic24tools/pic24-fwuploader/transport/transporttest"
	"github.com/stretchr/testify/require"
)

func TestProgramRowSize(t *testing.T) {
	require.Equal(t, protocol.PIC24FKRowSize, ProgramRowSize(devices.PIC24FK, true))
	require.Equal(t, protocol.PM33FRowSizeSmall, ProgramRowSize(devices.PIC24H, true))
	require.Equal(t, protocol.PM33FRowSizeLarge, ProgramRowSize(devices.DsPIC33E, false))
	require.Equal(t, protocol.PM33FRowSizeLarge, ProgramRowSize(devices.DsPIC30F, false))
	require.Equal(t, protocol.PM30FRowSize, LegacyRowSize(devices.DsPIC30F, false))
	require.Equal(t, protocol.PM33FRowSizeSmall, LegacyRowSize(devices.PIC24F, true))
}

func TestImageLayout(t *testing.T) {
	img := NewImage(64)
	require.Len(t, img.Rows(), protocol.PMSize+protocol.EESize+protocol.CMSize)

	program := img.RegionRows(Program)
	require.Len(t, program, protocol.PMSize)
	require.Equal(t, uint32(0), program[0].Address())
	require.Equal(t, uint32(128), program[1].Address())
	require.Equal(t, 64, program[1].RowSize())

	eeprom := img.RegionRows(EEProm)
	require.Len(t, eeprom, protocol.EESize)
	require.Equal(t, uint32(0x7FF000), eeprom[0].Address())
	require.Equal(t, uint32(0x7FF020), eeprom[1].Address())

	config := img.RegionRows(Configuration)
	require.Len(t, config, protocol.CMSize)
	require.Equal(t, uint32(0xF80000), config[0].Address())
	require.Equal(t, uint32(0xF8000E), config[7].Address())

	// rows never overlap within a region
	for _, rows := range [][]*Row{program, eeprom, config} {
		for i := 1; i < len(rows); i++ {
			require.Equal(t, rows[i-1].Address()+uint32(rows[i-1].Span()), rows[i].Address())
		}
	}
}

func TestInsertData(t *testing.T) {
	img := NewImage(64)
	require.True(t, img.InsertData(0x000000, 0x1234))
	require.True(t, img.InsertData(0x0000FF, 0x1234))
	require.True(t, img.InsertData(0x000080, 0x1234))
	require.True(t, img.InsertData(0x7FF01F, 0xAAAA))
	require.True(t, img.InsertData(0xF8000F, 0x00CF))

	require.False(t, img.InsertData(protocol.PMSize*128, 0x1234))
	require.False(t, img.InsertData(0x7FEFFF, 0x1234))
	require.False(t, img.InsertData(0xF80010, 0x1234))

	rows, programRows := img.CountNonEmpty()
	require.Equal(t, 4, rows)
	require.Equal(t, 2, programRows)

	program := img.RegionRows(Program)
	require.False(t, program[0].IsEmpty())
	require.False(t, program[1].IsEmpty())
	require.True(t, program[2].IsEmpty())
	require.False(t, img.RegionRows(EEProm)[0].IsEmpty())
	require.False(t, img.RegionRows(Configuration)[7].IsEmpty())
}

func TestProgramRowRoundTrip(t *testing.T) {
	row := NewRow(Program, 0, 1, 4)
	require.Equal(t, uint32(8), row.Address())
	instructions := []uint32{0x040C00, 0x000000, 0xFA0000, 0x123456}
	for i, ins := range instructions {
		// hex files store the instruction least significant byte first, plus a phantom byte
		low := uint16(byte(ins))<<8 | uint16(byte(ins>>8))
		high := uint16(byte(ins>>16)) << 8
		require.True(t, row.InsertData(row.Address()+uint32(2*i), low))
		require.True(t, row.InsertData(row.Address()+uint32(2*i+1), high))
	}
	require.False(t, row.InsertData(row.Address()+8, 0))
	row.FormatData()

	require.Len(t, row.Bytes(), 12)
	for i, ins := range instructions {
		require.Equal(t, ins, row.Instruction(i))
		require.Equal(t, uint16(byte(ins))<<8|uint16(byte(ins>>8)), uint16(row.Byte(3*i))<<8|uint16(row.Byte(3*i+1)))
		require.Equal(t, uint16(byte(ins>>16))<<8, uint16(row.Byte(3*i+2))<<8)
	}
}

func TestEEPromRowRoundTrip(t *testing.T) {
	row := NewRow(EEProm, protocol.EEPROMBase, 0, 0)
	words := map[int]uint16{0: 0x1122, 2: 0x3344, 30: 0xBEEF}
	for offset, word := range words {
		require.True(t, row.InsertData(row.Address()+uint32(offset), word))
	}
	row.FormatData()
	require.Len(t, row.Bytes(), protocol.EE30FRowSize*2)
	for i := 0; i < protocol.EE30FRowSize; i++ {
		got := uint16(row.Byte(2*i))<<8 | uint16(row.Byte(2*i+1))
		expected, ok := words[2*i]
		if !ok {
			expected = protocol.ErasedWord
		}
		require.Equal(t, expected, got, "word %d", i)
	}
}

func TestEmptyRowReadsErased(t *testing.T) {
	row := NewRow(Program, 0, 0, 4)
	row.FormatData()
	require.True(t, row.IsEmpty())
	require.Nil(t, row.Bytes())
	require.Equal(t, uint32(0xFFFFFF), row.Instruction(0))
}

func TestCloneIsIndependent(t *testing.T) {
	img := NewImage(4)
	require.True(t, img.InsertData(0, 0x0102))
	img.FormatData()
	clone := img.Clone()

	require.True(t, img.InsertData(0, 0x0A0B))
	img.FormatData()
	require.Equal(t, byte(0x01), clone.Rows()[0].Byte(0))
	require.Equal(t, byte(0x0A), img.Rows()[0].Byte(0))
}

func loadImage(t *testing.T, file *paths.Path) *Image {
	f, err := file.Open()
	require.NoError(t, err)
	defer f.Close()

	img := NewImage(64)
	d := hexfile.NewDecoder(f)
	for {
		block, err := d.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for i, word := range block.Words {
			require.True(t, img.InsertData(block.Address+uint32(i), word))
		}
	}
	img.FormatData()
	return img
}

func TestParsingIsIdempotent(t *testing.T) {
	file := paths.New("testdata", "blink.hex")
	first := loadImage(t, file)
	second := loadImage(t, file)
	for i := range first.Rows() {
		require.Equal(t, first.Rows()[i].IsEmpty(), second.Rows()[i].IsEmpty())
		require.Equal(t, first.Rows()[i].Bytes(), second.Rows()[i].Bytes())
	}

	rows, programRows := first.CountNonEmpty()
	require.Equal(t, 2, programRows)
	require.Equal(t, 4, rows)
	require.Equal(t, uint32(0x040C00), first.Rows()[0].Instruction(0))
	require.Equal(t, uint32(0x200001), first.RegionRows(Program)[0xC00/128].Instruction((0xC00%128)/2))
}

func TestSendAndReadData(t *testing.T) {
	device := transporttest.NewDevice(0x1234, 0, 0, 4)
	row := NewRow(Program, 0, 3, 4)
	for i := 0; i < 8; i++ {
		require.True(t, row.InsertData(row.Address()+uint32(i), uint16(0x1100*i+0x22)))
	}
	row.FormatData()
	expected := row.Bytes()

	require.NoError(t, row.SendData(device))
	frames := device.FramesWith(protocol.WritePM)
	require.Len(t, frames, 1)
	require.Equal(t, row.Address(), frames[0].Address)
	require.Equal(t, expected, frames[0].Data)

	readBack := NewRow(Program, 0, 3, 4)
	require.NoError(t, readBack.ReadData(device))
	require.Equal(t, expected, readBack.Bytes())
}

func TestSendConfigurationRow(t *testing.T) {
	device := transporttest.NewDevice(0x1234, 0, 0, 4)
	row := NewRow(Configuration, protocol.ConfigurationBase, 2, 0)
	require.True(t, row.InsertData(0xF80004, 0xCF00))
	row.FormatData()
	require.NoError(t, row.SendData(device))
	word, ok := device.ConfigWord(0xF80004)
	require.True(t, ok)
	require.Equal(t, [2]byte{0xCF, 0x00}, word)
}

func TestSendDataWithoutAck(t *testing.T) {
	device := transporttest.NewDevice(0x1234, 0, 0, 4)
	device.AckByte = protocol.NACK
	row := NewRow(EEProm, protocol.EEPROMBase, 0, 0)
	require.True(t, row.InsertData(protocol.EEPROMBase, 0x1234))
	row.FormatData()

	err := row.SendData(device)
	var ackErr *AckError
	require.True(t, errors.As(err, &ackErr))
	require.Equal(t, uint32(protocol.EEPROMBase), ackErr.Address)
}
