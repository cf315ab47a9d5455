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

	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDownloadCommand() *cobra.Command {
	var checksum *string

	downloadCmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download a device catalog",
		Long:  "Downloads a device catalog into the data directory, it can then be passed to --devices.",
		Example: "" +
			"  " + os.Args[0] + " devices download https://example.com/devices.txt\n" +
			"  " + os.Args[0] + " devices download https://example.com/devices.txt --checksum SHA-256:af2ff3c4...\n",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			download(args[0], *checksum)
		},
	}
	checksum = downloadCmd.Flags().String("checksum", "", "Expected checksum of the catalog, e.g.: SHA-256:<hex digest>")
	return downloadCmd
}

type DownloadResult struct {
	URL     string `json:"url"`
	Path    string `json:"path"`
	Devices int    `json:"devices"`
}

func (r *DownloadResult) String() string {
	return fmt.Sprintf("Downloaded %d devices from %s to %s", r.Devices, r.URL, r.Path)
}

func (r *DownloadResult) Data() interface{} {
	return r
}

func download(url, checksum string) {
	destDir := globals.DataDir.Join("catalogs")
	if err := destDir.MkdirAll(); err != nil {
		feedback.Fatal(fmt.Sprintf("Can't create data directory: %s", err), feedback.ErrCoreConfig)
	}

	catalogPath, err := devices.Download(url, destDir, checksum)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error downloading catalog from %s: %s", url, err), feedback.ErrNetwork)
	}
	catalog, err := devices.Load(catalogPath)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error loading catalog: %s", err), feedback.ErrGeneric)
	}
	logrus.Infof("Catalog stored in %s", catalogPath)

	feedback.PrintResult(&DownloadResult{
		URL:     url,
		Path:    catalogPath.String(),
		Devices: catalog.Len(),
	})
}
