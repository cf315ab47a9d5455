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

package devices

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pic24tools/pic24-fwuploader/cli/common"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var catalogPath *string
	var family *string

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List known devices",
		Long:    "Displays the devices of the catalog, it is possible to filter results for a specific family.",
		Example: "  " + os.Args[0] + " devices list -f PIC24F",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("devices") {
				*catalogPath = globals.Config.Devices
			}
			list(*catalogPath, *family)
		},
	}
	catalogPath = listCmd.Flags().StringP("devices", "d", "", "Device catalog file, the embedded catalog is used if empty")
	family = listCmd.Flags().StringP("family", "f", "", "Filter result for the specified device family")
	return listCmd
}

type DeviceListResult []devices.Device

func list(catalogPath, familyName string) {
	var filter *devices.Family
	if familyName != "" {
		family, err := devices.ParseFamily(familyName)
		if err != nil {
			feedback.Fatal(err.Error(), feedback.ErrBadArgument)
		}
		filter = &family
	}

	catalog := common.LoadCatalog(catalogPath)
	res := DeviceListResult{}
	for _, device := range catalog.Devices() {
		if filter == nil || device.Family == *filter {
			res = append(res, device)
		}
	}

	feedback.PrintResult(res)
}

func (l DeviceListResult) String() string {
	if len(l) == 0 {
		return "No devices available."
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tFamily\tID\tProcess ID\tConfig page\tSmall RAM")
	for _, d := range l {
		smallRAM := ""
		if d.SmallRAM {
			smallRAM = "✔"
		}
		fmt.Fprintf(w, "%s\t%s\t0x%04X\t%d\t0x%X\t%s\n", d.Name, d.Family, d.ID, d.ProcessID, d.ConfigPage, smallRAM)
	}
	w.Flush()
	return strings.TrimSuffix(sb.String(), "\n")
}

func (l DeviceListResult) Data() interface{} {
	return l
}
