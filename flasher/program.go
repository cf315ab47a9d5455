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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/hexfile"
	"github.com/pic24tools/pic24-fwuploader/memory"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/sirupsen/logrus"
	semver "go.bug.st/relaxed-semver"
	"golang.org/x/exp/slices"
)

// Report summarizes a programming session.
type Report struct {
	Device            *devices.Device
	FirmwareVersion   *semver.RelaxedVersion
	ConfigBitsEnabled bool
	RowsWritten       int
	RowsSkipped       int
	RowsVerified      int
	ResetCommand      byte
}

// ProgramHexFile writes the Intel-HEX image read from hexFile to the
// identified device, verifies the program memory and resets the device.
//
// Parse errors, address clashes and out of range data abort before anything
// is sent. Verification failures are collected over all program rows and
// returned as a *VerificationError after the device has been reset.
// Cancellation is checked between rows.
func (f *PicFlasher) ProgramHexFile(ctx context.Context, hexFile io.Reader) (*Report, error) {
	if err := f.GetVersion(); err != nil {
		return nil, err
	}

	img, err := f.buildImage(hexFile)
	if err != nil {
		return nil, err
	}

	if f.firmwareMajor == 0 {
		return nil, f.readLegacyResetVector()
	}

	img.FormatData()
	snapshot := img.Clone()

	report := &Report{
		Device:            f.device,
		FirmwareVersion:   f.FirmwareVersion(),
		ConfigBitsEnabled: f.configBitsEnabled,
	}

	f.state = Programming
	logrus.Info("Programming device")
	if err := f.transmit(ctx, img, report); err != nil {
		return report, f.fail(err)
	}

	f.state = Verifying
	logrus.Info("Verifying")
	verification, err := f.verify(ctx, img, snapshot, report)
	if err != nil {
		return report, f.fail(err)
	}
	if !verification.empty() {
		f.state = Error
		f.giveProgress(StatusError, 0)
	}

	if err := f.resendConfiguration(img); err != nil {
		return report, f.fail(err)
	}
	if err := f.reset(report); err != nil {
		return report, f.fail(err)
	}

	if !verification.empty() {
		logrus.Error(verification)
		return report, verification
	}
	f.state = Done
	logrus.Info("Done!")
	f.giveProgress(StatusIdle, 100)
	return report, nil
}

func (f *PicFlasher) fail(err error) error {
	f.state = Error
	f.giveProgress(StatusError, 0)
	logrus.Error(err)
	return err
}

// buildImage parses the hex stream into a fresh memory image, checking every
// word against the bootloader protections.
func (f *PicFlasher) buildImage(hexFile io.Reader) (*memory.Image, error) {
	family := f.device.Family

	logrus.Info("Reading hex file")
	data, err := io.ReadAll(hexFile)
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	if f.strict {
		if err := hexfile.ValidateChecksums(data); err != nil {
			logrus.Error(err)
			return nil, err
		}
	}

	img := memory.NewImage(memory.ProgramRowSize(family, f.device.SmallRAM))
	decoder := hexfile.NewDecoder(bytes.NewReader(data))
	for {
		block, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Error(err)
			return nil, err
		}

		if !CheckPage(block.Address, family) {
			err := &AddressClashError{Kind: PageClash, Line: block.Line, Address: block.Address}
			logrus.Error(err)
			return nil, err
		}
		for i, word := range block.Words {
			address := block.Address + uint32(i)
			if !CheckReservedWord(address, word, family) {
				err := &AddressClashError{Kind: ReservedWordClash, Line: block.Line, Address: address, Data: word}
				logrus.Error(err)
				return nil, err
			}
			if !CheckConfigRegion(address, word, family, f.device.ConfigPage, f.device.ConfigWord, f.configBitsEnabled) {
				err := &AddressClashError{Kind: ConfigRegionClash, Line: block.Line, Address: address, Data: word}
				logrus.Error(err)
				return nil, err
			}
			if !img.InsertData(address, word) {
				err := &memory.AddressOutOfRangeError{Address: address}
				logrus.Error(err)
				return nil, err
			}
		}
	}
	logrus.Info("Hex file read successfully")
	return img, nil
}

// readLegacyResetVector reads the first program row the way version 0
// firmwares expect before programming. Programming through them is not
// supported, so the session always ends in error.
func (f *PicFlasher) readLegacyResetVector() error {
	rowSize := memory.LegacyRowSize(f.device.Family, f.device.SmallRAM)
	if err := f.transport.WriteBytes(protocol.BuildReadPMCmd(protocol.ProgramBase)); err != nil {
		return f.fail(err)
	}
	data := make([]byte, rowSize*3)
	if err := f.transport.ReadBytes(data); err != nil {
		return f.fail(err)
	}
	logrus.Debugf("Legacy reset vector: % X", data[:6])
	return f.fail(ErrUnsupportedFirmware)
}

// ShouldSkipRow reports whether row must not be written nor verified.
// Firmware version 3 and later never get rows below protocol.ProgramStart.
// Devices keeping their configuration words in flash never get non-empty
// rows on the configuration page through the bulk path.
func (f *PicFlasher) ShouldSkipRow(row *memory.Row, family devices.Family) bool {
	address := row.Address()
	if f.protectsBootloader() && address < protocol.ProgramStart {
		return true
	}
	if slices.Contains(configPageFamilies, family) && f.device != nil {
		if address >= f.device.ConfigPage && !row.IsEmpty() {
			logrus.Infof("Skipping memory row 0x%06X on config bit page", address)
			return true
		}
	}
	return false
}

func (f *PicFlasher) transmit(ctx context.Context, img *memory.Image, report *Report) error {
	family := f.device.Family
	nonEmptyRows, _ := img.CountNonEmpty()
	count := 0
	for _, row := range img.Rows() {
		if row.IsEmpty() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("programming cancelled: %w", err)
		}
		count++
		f.giveProgress(StatusProgramming, 100*count/nonEmptyRows)

		if row.Type() == memory.Configuration && !f.configBitsEnabled {
			report.RowsSkipped++
			continue
		}
		if f.ShouldSkipRow(row, family) {
			report.RowsSkipped++
			continue
		}

		logrus.WithField("address", fmt.Sprintf("0x%06X", row.Address())).
			Debugf("Writing %s row %d", row.Type(), row.RowNumber())
		if err := row.SendData(f.transport); err != nil {
			return FlasherError{err: fmt.Sprintf("writing %s row %d", row.Type(), row.RowNumber()), cause: err}
		}
		report.RowsWritten++

		if row.Type() == memory.Configuration && row.RowNumber() == 0 && family == devices.PIC24H {
			logrus.Info("Config bits sent")
		}
	}
	return nil
}

// verify reads back every non-empty program row and compares it with
// snapshot. Only transport setup failures and cancellation are returned as
// errors, failed rows are collected in the returned VerificationError.
func (f *PicFlasher) verify(ctx context.Context, img, snapshot *memory.Image, report *Report) (*VerificationError, error) {
	family := f.device.Family
	_, nonEmptyProgramRows := img.CountNonEmpty()
	expectedRows := snapshot.RegionRows(memory.Program)
	verification := &VerificationError{}
	count := 0
	for i, row := range img.RegionRows(memory.Program) {
		if row.IsEmpty() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("verification cancelled: %w", err)
		}
		count++
		f.giveProgress(StatusVerifying, 100*count/nonEmptyProgramRows)

		if f.ShouldSkipRow(row, family) {
			continue
		}
		if err := row.ReadData(f.transport); err != nil {
			nack := &NackError{Address: row.Address(), Err: err}
			logrus.Error(nack)
			verification.ReadFailures = append(verification.ReadFailures, nack)
			if err := f.transport.Clear(); err != nil {
				return nil, err
			}
			continue
		}
		report.RowsVerified++

		expected := expectedRows[i]
		address := row.Address()
		for index := 0; index < row.RowSize(); index++ {
			want, got := expected.Instruction(index), row.Instruction(index)
			if want != got {
				mismatch := Mismatch{Address: address, Expected: want, Got: got}
				logrus.Error(mismatch)
				verification.Mismatches = append(verification.Mismatches, mismatch)
				break
			}
			address += 2
		}
	}
	return verification, nil
}

// resendConfiguration writes the configuration rows again. The firmware
// needs them right before reset when config bits are programmed.
func (f *PicFlasher) resendConfiguration(img *memory.Image) error {
	if !f.configBitsEnabled {
		return nil
	}
	for _, row := range img.RegionRows(memory.Configuration) {
		if row.IsEmpty() {
			continue
		}
		if err := row.SendData(f.transport); err != nil {
			return FlasherError{err: fmt.Sprintf("resending configuration row %d", row.RowNumber()), cause: err}
		}
	}
	return nil
}

func (f *PicFlasher) reset(report *Report) error {
	command := protocol.PORReset
	if f.firmwareMajor == 0 || f.configBitsEnabled {
		command = protocol.Reset
	}
	report.ResetCommand = command
	logrus.Debugf("Sending reset command 0x%02X", command)
	return f.transport.WriteBytes([]byte{command})
}
