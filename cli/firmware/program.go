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

package firmware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/arduino/go-paths-helper"
	"github.com/pic24tools/pic24-fwuploader/cli/common"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/pic24tools/pic24-fwuploader/flasher"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var strict bool

// NewProgramCommand creates a new `program` command
func NewProgramCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "program FILE.hex",
		Short: "Programs a hex file to the device.",
		Long:  "Writes an Intel HEX file through the bootloader, verifies the program memory and resets the device.",
		Example: "" +
			"  " + os.Args[0] + " program --port /dev/ttyUSB0 firmware.hex\n" +
			"  " + os.Args[0] + " program -p COM10 -d devices.txt --mclr --strict firmware.hex\n",
		Args: cobra.ExactArgs(1),
		Run:  runProgram,
	}
	commonFlags.AddToCommand(command)
	command.Flags().BoolVar(&strict, "strict", false, "Reject hex files with wrong record checksums")
	return command
}

// ProgramResult is the outcome of a programming session.
type ProgramResult struct {
	*DeviceResult
	File         string `json:"file"`
	RowsWritten  int    `json:"rows_written"`
	RowsSkipped  int    `json:"rows_skipped"`
	RowsVerified int    `json:"rows_verified"`
	Reset        string `json:"reset"`
}

func (r *ProgramResult) String() string {
	return fmt.Sprintf("%s\nProgrammed %s: %d rows written, %d skipped, %d verified, %s sent",
		r.DeviceResult, r.File, r.RowsWritten, r.RowsSkipped, r.RowsVerified, r.Reset)
}

func (r *ProgramResult) Data() interface{} {
	return r
}

func printProgress(status flasher.Status, percent int) {
	switch status {
	case flasher.StatusProgramming:
		feedback.Progress("Programming", percent)
	case flasher.StatusVerifying:
		feedback.Progress("Verifying", percent)
	}
}

func runProgram(cmd *cobra.Command, args []string) {
	commonFlags.Merge(cmd, globals.Config)
	if !cmd.Flags().Changed("strict") {
		strict = globals.Config.StrictChecksum
	}
	common.CheckFlags(&commonFlags)

	hexPath := paths.New(args[0])
	if !hexPath.Exist() {
		feedback.Fatal(fmt.Sprintf("hex file not found in %s", hexPath), feedback.ErrBadArgument)
	}
	hexFile, err := hexPath.Open()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error opening hex file: %s", err), feedback.ErrGeneric)
	}
	defer hexFile.Close()

	port, f, device := common.Connect(&commonFlags,
		flasher.WithProgress(flasher.ProgressFunc(printProgress)),
		flasher.WithStrictChecksums(strict))
	defer port.Close()
	logrus.Infof("Programming %s with %s", device.Name, hexPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := f.ProgramHexFile(ctx, hexFile)
	if err != nil {
		port.Close()
		var verification *flasher.VerificationError
		if errors.As(err, &verification) {
			feedback.Fatal(fmt.Sprintf("Error during verification: %s", err), feedback.ErrVerification)
		}
		feedback.Fatal(fmt.Sprintf("Error during programming: %s", err), feedback.ErrGeneric)
	}

	reset := "RESET"
	if report.ResetCommand == protocol.PORReset {
		reset = "POR_RESET"
	}
	feedback.PrintResult(&ProgramResult{
		DeviceResult: newDeviceResult(port.Address(), f),
		File:         hexPath.String(),
		RowsWritten:  report.RowsWritten,
		RowsSkipped:  report.RowsSkipped,
		RowsVerified: report.RowsVerified,
		Reset:        reset,
	})
	logrus.Info("Operation completed: success! :-)")
}
