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

package cli

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/mattn/go-colorable"
	"github.com/pic24tools/pic24-fwuploader/cli/config"
	"github.com/pic24tools/pic24-fwuploader/cli/devices"
	"github.com/pic24tools/pic24-fwuploader/cli/feedback"
	"github.com/pic24tools/pic24-fwuploader/cli/firmware"
	"github.com/pic24tools/pic24-fwuploader/cli/globals"
	"github.com/pic24tools/pic24-fwuploader/cli/ports"
	"github.com/pic24tools/pic24-fwuploader/cli/version"
	cfg "github.com/pic24tools/pic24-fwuploader/config"
	v "github.com/pic24tools/pic24-fwuploader/version"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	outputFormat string
	verbose      bool
	logFile      string
	logFormat    string
	logLevel     string
	configFile   string
)

func NewCommand() *cobra.Command {
	// pic24-fwuploader is the root command
	uploaderCli := &cobra.Command{
		Use:              "pic24-fwuploader",
		Short:            "pic24-fwuploader.",
		Long:             "pic24-fwuploader programs PIC24 and dsPIC devices running a serial bootloader.",
		Example:          "  " + os.Args[0] + " <command> [flags...]",
		Args:             cobra.NoArgs,
		PersistentPreRun: preRun,
	}

	uploaderCli.AddCommand(version.NewCommand())
	uploaderCli.AddCommand(firmware.NewIdentifyCommand())
	uploaderCli.AddCommand(firmware.NewProgramCommand())
	uploaderCli.AddCommand(devices.NewCommand())
	uploaderCli.AddCommand(ports.NewCommand())
	uploaderCli.AddCommand(config.NewCommand())

	uploaderCli.PersistentFlags().StringVar(&outputFormat, "format", "text", "The output format, can be {text|json}.")
	uploaderCli.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file, defaults to config.yaml in the data directory.")

	uploaderCli.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to the file where logs will be written")
	uploaderCli.PersistentFlags().StringVar(&logFormat, "log-format", "", "The output format for the logs, can be {text|json}.")
	uploaderCli.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Messages with this level and above will be logged. Valid levels are: trace, debug, info, warn, error, fatal, panic")
	uploaderCli.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print the logs on the standard output.")

	return uploaderCli
}

// Convert the string passed to the `--log-level` option to the corresponding
// logrus formal level.
func toLogLevel(s string) (t logrus.Level, found bool) {
	t, found = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}[s]

	return
}

func preRun(cmd *cobra.Command, args []string) {
	// Prepare logging
	if verbose {
		// if we print on stdout, do it in full colors
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors: true,
		})
	} else {
		logrus.SetOutput(ioutil.Discard)
	}

	// Normalize the format strings
	logFormat = strings.ToLower(logFormat)
	if logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to open file for logging: %s\n", logFile)
			os.Exit(int(feedback.ErrBadArgument))
		}

		// Use a hook so we don't get color codes in the log file
		if logFormat == "json" {
			logrus.AddHook(lfshook.NewHook(file, &logrus.JSONFormatter{}))
		} else {
			logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
		}
	}

	// Configure logging filter
	if lvl, found := toLogLevel(logLevel); !found {
		fmt.Fprintf(os.Stderr, "Invalid option for --log-level: %s\n", logLevel)
		os.Exit(int(feedback.ErrBadArgument))
	} else {
		logrus.SetLevel(lvl)
	}
	globals.LogLevel = logLevel
	globals.Verbose = verbose

	//
	// Prepare the Feedback system
	//

	// normalize the format strings
	outputFormat = strings.ToLower(outputFormat)
	// check the right output format was passed
	format, found := feedback.ParseOutputFormat(outputFormat)
	if !found {
		fmt.Fprintf(os.Stderr, "Invalid output format: %s\n", outputFormat)
		os.Exit(int(feedback.ErrBadArgument))
	}

	// use the output format to configure the Feedback
	feedback.SetFormat(format)

	logrus.Info(v.VersionInfo.Short())

	// An explicit --config must exist, the default one is optional
	configPath, mustExist := globals.DefaultConfigFile, false
	if configFile != "" {
		configPath, mustExist = paths.New(configFile), true
	}
	loaded, err := cfg.Load(configPath, mustExist)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error loading configuration: %s", err), feedback.ErrNoConfigFile)
	}
	globals.Config = loaded
	globals.ConfigFile = configPath

	if outputFormat != "text" {
		cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
			logrus.Warn("Calling help on JSON format")
			feedback.Fatal("Invalid Call : should show Help, but it is available only in TEXT mode.", feedback.ErrBadArgument)
		})
	}
}
