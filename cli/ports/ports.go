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

package ports

import (
	"fmt"
	"os"
	"strings"

	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/transport"
	"github.com/spf13/cobra"
)

// NewCommand created a new `ports` command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ports",
		Short:   "Lists the serial ports.",
		Long:    "Lists the serial ports available to reach a bootloader.",
		Example: "  " + os.Args[0] + " ports",
		Args:    cobra.NoArgs,
		Run:     run,
	}
}

type PortListResult []string

func (l PortListResult) String() string {
	if len(l) == 0 {
		return "No serial ports found."
	}
	return strings.Join(l, "\n")
}

func (l PortListResult) Data() interface{} {
	return l
}

func run(cmd *cobra.Command, args []string) {
	ports, err := transport.ListPorts()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error listing serial ports: %s", err), feedback.ErrDevice)
	}
	feedback.PrintResult(PortListResult(ports))
}
