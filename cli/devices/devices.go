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

// Package devices contains the commands operating on the device catalog.
package devices

import (
	"os"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:     "devices",
		Short:   "Commands to operate on the device catalog.",
		Long:    "A subset of commands to list and download device catalogs.",
		Example: "  " + os.Args[0] + " devices ...",
	}

	devicesCmd.AddCommand(newListCommand())
	devicesCmd.AddCommand(newDownloadCommand())
	return devicesCmd
}
