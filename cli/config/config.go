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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewCommand created a new `config` command
func NewCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Configuration commands.",
		Long:    "Commands to show and write the configuration file.",
		Example: "  " + os.Args[0] + " config init",
	}
	configCmd.AddCommand(newInitCommand())
	configCmd.AddCommand(newDumpCommand())
	return configCmd
}

func newInitCommand() *cobra.Command {
	var destFile string
	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Writes the current configuration to file.",
		Long:  "Creates or updates the configuration file with the current settings.",
		Example: "" +
			"  " + os.Args[0] + " config init\n" +
			"  " + os.Args[0] + " config init --dest-file /home/user/pic24.yaml\n",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			dest := globals.ConfigFile
			if destFile != "" {
				dest = paths.New(destFile)
			}
			if dest.Exist() && !overwrite {
				feedback.Fatal(fmt.Sprintf("Config file already exists at %s, use --overwrite to discard the existing one.", dest), feedback.ErrGeneric)
			}
			if err := globals.Config.Write(dest); err != nil {
				feedback.Fatal(fmt.Sprintf("Cannot write config file: %s", err), feedback.ErrGeneric)
			}
			feedback.Print("Config file written to: " + dest.String())
		},
	}
	initCmd.Flags().StringVar(&destFile, "dest-file", "", "Sets where to save the configuration file.")
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing config file.")
	return initCmd
}

type dumpResult struct {
	path string
}

func (r dumpResult) String() string {
	data, err := yaml.Marshal(globals.Config)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error encoding configuration: %v", err), feedback.ErrGeneric)
	}
	return "# " + r.path + "\n" + strings.TrimSuffix(string(data), "\n")
}

func (r dumpResult) Data() interface{} {
	return globals.Config
}

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "dump",
		Short:   "Prints the current configuration.",
		Long:    "Prints the current configuration.",
		Example: "  " + os.Args[0] + " config dump",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			feedback.PrintResult(dumpResult{path: globals.ConfigFile.String()})
		},
	}
}
