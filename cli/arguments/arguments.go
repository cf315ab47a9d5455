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

package arguments

import (
	"time"

	"github.com/pic24tools/pic24-fwuploader/config"
	"github.com/spf13/cobra"
)

// Flags contains the flags shared by the commands talking to a device.
// Values not given on the command line come from the configuration file.
type Flags struct {
	Port    string
	Baud    int
	Devices string
	MCLR    bool
	Timeout time.Duration
	Retries int
}

// AddToCommand adds the device flags to the specified Command
func (f *Flags) AddToCommand(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Port, "port", "p", "", "Serial port of the bootloader, e.g.: COM10, /dev/ttyUSB0")
	cmd.Flags().IntVarP(&f.Baud, "baud", "b", config.DefaultBaud, "Baud rate of the bootloader")
	cmd.Flags().StringVarP(&f.Devices, "devices", "d", "", "Device catalog file, the embedded catalog is used if empty")
	cmd.Flags().BoolVar(&f.MCLR, "mclr", false, "Pulse MCLR through RTS and DTR before identifying the device")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", config.DefaultReadTimeout, "Serial read timeout")
	cmd.Flags().IntVar(&f.Retries, "retries", config.DefaultRetries, "Number of identification attempts")
}

// Merge fills the flags not set on the command line from cfg.
func (f *Flags) Merge(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("port") {
		f.Port = cfg.Port
	}
	if !flags.Changed("baud") {
		f.Baud = cfg.Baud
	}
	if !flags.Changed("devices") {
		f.Devices = cfg.Devices
	}
	if !flags.Changed("mclr") {
		f.MCLR = cfg.MCLR
	}
	if !flags.Changed("timeout") {
		f.Timeout = cfg.ReadTimeout
	}
	if !flags.Changed("retries") {
		f.Retries = cfg.Retries
	}
}
