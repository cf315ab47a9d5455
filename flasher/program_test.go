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
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pic24tools/pic24-fwuploader/hexfile"
	"github.com/pic24tools/pic24-fwuploader/memory"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/pic24tools/pic24-fwuploader/transport/transporttest"
	"github.com/stretchr/testify/require"
)

func requireNothingWritten(t *testing.T, device *transporttest.Device) {
	require.Empty(t, device.WriteFrames())
	require.Empty(t, device.FramesWith(protocol.Reset))
	require.Empty(t, device.FramesWith(protocol.PORReset))
}

func TestProgramHexFile(t *testing.T) {
	f, device, progress := newSession("PIC24HJ128GP502")
	image := hexImage(
		dataAt(0x000000, instructions(0x040C00, 0x000000)...),
		dataAt(0x000C00, instructions(0x200001, 0x780002)...),
		dataAt(0x7FF000, 0x1234),
		dataAt(0xF80000, 0xCF00, 0x0000),
	)

	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
	require.Equal(t, Done, f.State())

	require.Equal(t, 3, report.RowsWritten)
	require.Equal(t, 1, report.RowsSkipped)
	require.Equal(t, 1, report.RowsVerified)
	require.True(t, report.ConfigBitsEnabled)
	require.Equal(t, protocol.Reset, report.ResetCommand)
	require.Equal(t, "PIC24HJ128GP502", report.Device.Name)

	require.Equal(t, protocol.ReadVersion, device.Frames[0].Command)
	require.Equal(t, protocol.Reset, device.Frames[len(device.Frames)-1].Command)

	programWrites := device.FramesWith(protocol.WritePM)
	require.Len(t, programWrites, 1)
	require.Equal(t, uint32(0xC00), programWrites[0].Address)
	require.Len(t, programWrites[0].Data, 512*3)
	require.Equal(t, [3]byte{0x01, 0x00, 0x20}, device.Instruction(0xC00))
	require.Equal(t, [3]byte{0x02, 0x00, 0x78}, device.Instruction(0xC02))
	require.Equal(t, [3]byte{0xFF, 0xFF, 0xFF}, device.Instruction(0xC04))

	eepromWrites := device.FramesWith(protocol.WriteEE)
	require.Len(t, eepromWrites, 1)
	require.Equal(t, uint32(0x7FF000), eepromWrites[0].Address)
	require.Equal(t, []byte{0x12, 0x34}, eepromWrites[0].Data[:2])

	// config rows are written, then written again before reset
	configWrites := device.FramesWith(protocol.WriteCM)
	require.Len(t, configWrites, 2)
	for _, frame := range configWrites {
		require.Equal(t, uint32(0xF80000), frame.Address)
		require.Equal(t, []byte{0xCF, 0x00}, frame.Data)
	}

	reads := device.FramesWith(protocol.ReadPM)
	require.Len(t, reads, 1)
	require.Equal(t, uint32(0xC00), reads[0].Address)

	require.Equal(t, []progressEvent{
		{StatusProgramming, 25},
		{StatusProgramming, 50},
		{StatusProgramming, 75},
		{StatusProgramming, 100},
		{StatusVerifying, 50},
		{StatusVerifying, 100},
		{StatusIdle, 100},
	}, progress.events)
}

func TestProgramNeverTouchesBootloaderWithVersion3(t *testing.T) {
	for _, name := range []string{"PIC24HJ128GP502", "PIC24FJ64GA002", "dsPIC30F4011", "PIC24F16KA102"} {
		t.Run(name, func(t *testing.T) {
			f, device, _ := newSession(name)
			image := hexImage(
				dataAt(0x000000, instructions(0x040C00, 0x000000)...),
				dataAt(0x000004, instructions(0x000E00, 0x000E00, 0x000E00)...),
				dataAt(0x000C00, instructions(0x200001)...),
				dataAt(0x000E00, instructions(0x000000, 0xFE0000)...),
			)
			_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
			require.NoError(t, err)
			require.NotEmpty(t, device.FramesWith(protocol.WritePM))
			for _, frame := range device.Frames {
				if frame.Command == protocol.WritePM || frame.Command == protocol.ReadPM {
					require.GreaterOrEqual(t, frame.Address, uint32(protocol.ProgramStart))
				}
			}
		})
	}
}

func TestProgramVersion2WritesResetVector(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	device.SetVersion(2, 0)
	image := hexImage(
		dataAt(0x000000, instructions(0x040C00, 0x000000)...),
		dataAt(0x000C00, instructions(0x200001)...),
	)
	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
	require.Equal(t, 2, report.RowsWritten)
	require.Equal(t, 2, report.RowsVerified)
	require.Equal(t, [3]byte{0x00, 0x0C, 0x04}, device.Instruction(0))
}

func TestReservedWordClash(t *testing.T) {
	for _, address := range []uint32{0x200, 0x2FE, 0x3FF, 0x401, 0xBFF} {
		t.Run(fmt.Sprintf("0x%X", address), func(t *testing.T) {
			f, device, _ := newSession("PIC24HJ128GP502")
			image := hexImage(
				dataAt(0x000000, instructions(0x040C00, 0x000000)...),
				dataAt(address, 0x1234),
				dataAt(0x000C00, instructions(0x200001)...),
			)
			_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
			var clash *AddressClashError
			require.True(t, errors.As(err, &clash))
			require.Equal(t, ReservedWordClash, clash.Kind)
			require.Equal(t, address, clash.Address)
			require.Equal(t, uint16(0x1234), clash.Data)
			requireNothingWritten(t, device)
			require.Empty(t, device.FramesWith(protocol.ReadPM))
		})
	}
}

func TestReservedWindowAcceptsErasedWords(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	image := hexImage(
		dataAt(0x000200, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF),
		dataAt(0x000C00, instructions(0x200001)...),
	)
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
	require.Len(t, device.FramesWith(protocol.WritePM), 1)
}

func TestReservedWindowOnNonPageFamily(t *testing.T) {
	f, _, _ := newSession("dsPIC30F4011")
	image := hexImage(
		dataAt(0x000200, 0x1234, 0x0000),
		dataAt(0x000400, 0x1234, 0x0000),
	)
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
}

func TestPageClash(t *testing.T) {
	f, device, _ := newSession("PIC24FJ64GA002")
	image := hexImage(dataAt(0x000400, 0xFFFF, 0xFFFF))
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var clash *AddressClashError
	require.True(t, errors.As(err, &clash))
	require.Equal(t, PageClash, clash.Kind)
	require.Equal(t, uint32(0x400), clash.Address)
	require.Equal(t, 2, clash.Line)
	requireNothingWritten(t, device)
}

func TestConfigRegionClash(t *testing.T) {
	f, device, _ := newSession("PIC24FJ64GA002")
	device.SetLegacy()
	image := hexImage(
		dataAt(0x000C00, instructions(0x200001)...),
		dataAt(0x00A800, 0x1234, 0x0000),
	)
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var clash *AddressClashError
	require.True(t, errors.As(err, &clash))
	require.Equal(t, ConfigRegionClash, clash.Kind)
	require.Equal(t, uint32(0xA800), clash.Address)
	requireNothingWritten(t, device)
	require.Empty(t, device.FramesWith(protocol.ReadPM))
}

func TestLegacyFirmwareIsUnsupported(t *testing.T) {
	f, device, progress := newSession("PIC24HJ128GP502")
	device.SetLegacy()
	image := hexImage(
		dataAt(0x000000, instructions(0x040C00, 0x000000)...),
		dataAt(0x000C00, instructions(0x200001)...),
	)
	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.Nil(t, report)
	require.ErrorIs(t, err, ErrUnsupportedFirmware)
	require.Equal(t, Error, f.State())
	require.Equal(t, []transporttest.Frame{
		{Command: protocol.ReadVersion},
		{Command: protocol.ReadPM, Address: 0},
	}, device.Frames)
	require.Equal(t, progressEvent{StatusError, 0}, progress.last())
}

func TestVerificationMismatch(t *testing.T) {
	f, device, progress := newSession("PIC24HJ128GP502")
	image := hexImage(
		dataAt(0x000C00, instructions(0x030201, 0x050403)...),
		dataAt(0x001000, instructions(0x070605)...),
	)
	device.Corrupt[0xC00] = [3]byte{0x01, 0x02, 0x04}
	device.Corrupt[0xC02] = [3]byte{0x09, 0x09, 0x09}
	device.Corrupt[0x1004] = [3]byte{0x00, 0x00, 0x00}

	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var verification *VerificationError
	require.True(t, errors.As(err, &verification))
	require.Equal(t, []Mismatch{
		{Address: 0xC00, Expected: 0x030201, Got: 0x040201},
		{Address: 0x1004, Expected: 0xFFFFFF, Got: 0x000000},
	}, verification.Mismatches)
	require.Empty(t, verification.ReadFailures)
	require.Equal(t, 2, report.RowsVerified)
	require.Equal(t, Error, f.State())

	// the device is reset anyway
	require.Equal(t, protocol.Reset, device.Frames[len(device.Frames)-1].Command)
	require.Equal(t, progressEvent{StatusError, 0}, progress.last())
	require.NotContains(t, progress.events, progressEvent{StatusIdle, 100})
}

func TestVerificationReadFailure(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	image := hexImage(
		dataAt(0x000C00, instructions(0x030201)...),
		dataAt(0x001000, instructions(0x070605)...),
	)
	device.FailReadAt[0xC00] = true

	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var verification *VerificationError
	require.True(t, errors.As(err, &verification))
	require.Empty(t, verification.Mismatches)
	require.Len(t, verification.ReadFailures, 1)
	require.Equal(t, uint32(0xC00), verification.ReadFailures[0].Address)
	require.Equal(t, 1, report.RowsVerified)
	require.Len(t, device.FramesWith(protocol.ReadPM), 2)
}

func TestConfigPageRowsAreSkipped(t *testing.T) {
	f, device, _ := newSession("PIC24FJ64GA002")
	image := hexImage(
		dataAt(0x000C00, instructions(0x200001)...),
		dataAt(0x00A800, 0x1234, 0x0000),
	)
	report, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
	require.Equal(t, 1, report.RowsWritten)
	require.Equal(t, 1, report.RowsSkipped)
	for _, command := range []byte{protocol.WritePM, protocol.ReadPM} {
		frames := device.FramesWith(command)
		require.Len(t, frames, 1)
		require.Equal(t, uint32(0xC00), frames[0].Address)
	}
}

func TestShouldSkipRow(t *testing.T) {
	f, device, _ := newSession("PIC24FJ64GA002")
	device.SetVersion(3, 0)
	require.NoError(t, f.GetVersion())
	family := f.Device().Family

	low := memory.NewRow(memory.Program, protocol.ProgramBase, 1, 64)
	require.True(t, f.ShouldSkipRow(low, family))

	empty := memory.NewRow(memory.Program, protocol.ProgramBase, 0xA800/128, 64)
	require.False(t, f.ShouldSkipRow(empty, family))
	full := empty.Clone()
	require.True(t, full.InsertData(0xA800, 0x0000))
	require.True(t, f.ShouldSkipRow(full, family))

	user := memory.NewRow(memory.Program, protocol.ProgramBase, 0xC00/128, 64)
	require.True(t, user.InsertData(0xC00, 0x0000))
	require.False(t, f.ShouldSkipRow(user, family))

	device.SetVersion(2, 0)
	require.NoError(t, f.GetVersion())
	require.False(t, f.ShouldSkipRow(low, family))
}

func TestProgramCancelled(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	image := hexImage(dataAt(0x000C00, instructions(0x200001)...))
	_, err := f.ProgramHexFile(ctx, strings.NewReader(image))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Error, f.State())
	requireNothingWritten(t, device)
}

func TestProgramMalformedHex(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	image := record(4, 0, 0, 0) + "\n:0400000012\n"
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var malformed *hexfile.MalformedLineError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, 2, malformed.Line)
	requireNothingWritten(t, device)

	image = hexImage([]string{record(2, 0, 0x10, 0x00)})
	_, err = f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var unsupported *hexfile.UnsupportedRecordTypeError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, byte(2), unsupported.Type)
	requireNothingWritten(t, device)
}

func TestProgramOutOfRange(t *testing.T) {
	f, device, _ := newSession("PIC24HJ128GP502")
	image := hexImage(dataAt(0x200000, 0x1234, 0x0000))
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var outOfRange *memory.AddressOutOfRangeError
	require.True(t, errors.As(err, &outOfRange))
	require.Equal(t, uint32(0x200000), outOfRange.Address)
	requireNothingWritten(t, device)
}

func TestStrictChecksums(t *testing.T) {
	lines := dataAt(0x000C00, instructions(0x200001)...)
	require.True(t, strings.HasSuffix(lines[1], "C3"))
	lines[1] = strings.TrimSuffix(lines[1], "C3") + "00"
	image := hexImage(lines)

	f, device, _ := newSession("PIC24HJ128GP502", WithStrictChecksums(true))
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.Error(t, err)
	requireNothingWritten(t, device)

	f, device, _ = newSession("PIC24HJ128GP502")
	_, err = f.ProgramHexFile(context.Background(), strings.NewReader(image))
	require.NoError(t, err)
	require.Len(t, device.FramesWith(protocol.WritePM), 1)
}

func TestProgramWriteNack(t *testing.T) {
	f, device, progress := newSession("PIC24HJ128GP502")
	device.AckByte = protocol.NACK
	image := hexImage(dataAt(0x000C00, instructions(0x200001)...))
	_, err := f.ProgramHexFile(context.Background(), strings.NewReader(image))
	var ackErr *memory.AckError
	require.True(t, errors.As(err, &ackErr))
	require.Equal(t, uint32(0xC00), ackErr.Address)
	var flasherErr FlasherError
	require.True(t, errors.As(err, &flasherErr))
	require.Equal(t, Error, f.State())
	require.Equal(t, progressEvent{StatusError, 0}, progress.last())
	require.Empty(t, device.FramesWith(protocol.ReadPM))
}
