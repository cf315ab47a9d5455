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
	"fmt"
	"os"

	"github.com/pic24tools/pic24-fwuploader/cli/common"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/spf13/cobra"
)

// NewIdentifyCommand creates a new `identify` command
func NewIdentifyCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "identify",
		Short: "Identifies the device connected to the bootloader.",
		Long:  "Reads the device ID and the bootloader firmware version of the device connected to the serial port.",
		Example: "" +
			"  " + os.Args[0] + " identify --port /dev/ttyUSB0\n" +
			"  " + os.Args[0] + " identify -p COM10 -b 57600 --mclr\n",
		Args: cobra.NoArgs,
		Run:  runIdentify,
	}
	commonFlags.AddToCommand(command)
	return command
}

func runIdentify(cmd *cobra.Command, args []string) {
	commonFlags.Merge(cmd, globals.Config)
	common.CheckFlags(&commonFlags)

	port, f, _ := common.Connect(&commonFlags)
	defer port.Close()

	if err := f.GetVersion(); err != nil {
		port.Close()
		feedback.Fatal(fmt.Sprintf("Couldn't get firmware version: %s", err), feedback.ErrDevice)
	}
	feedback.PrintResult(newDeviceResult(port.Address(), f))
}
