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

// Package devices contains the catalog of devices the bootloader knows how to
// program, and the loader for the comma separated catalog file format:
//
//	name,idHex,processIdDecimal,familyName,configPageHex,smallRAMFlag
//
// Blank lines and lines starting with '#' are ignored. Malformed lines are
// logged and skipped.
package devices

import (
	"bufio"
	_ "embed"
	"io"
	"strconv"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ConfigPageSize is the size in word addresses of the flash page holding
// the configuration words of PIC24F, PIC24E and dsPIC33E devices.
const ConfigPageSize = 0x400

// configWordsSize is the span of the configuration words at the end of the page.
const configWordsSize = 4

//go:embed devices.txt
var defaultCatalog string

// Device describes one programmable device.
type Device struct {
	Name       string `json:"name"`
	ID         uint16 `json:"id"`
	ProcessID  uint16 `json:"process_id"`
	Family     Family `json:"family"`
	ConfigPage uint32 `json:"config_page"`
	// ConfigWord is the address of the first configuration word, derived from ConfigPage.
	ConfigWord uint32 `json:"config_word"`
	SmallRAM   bool   `json:"small_ram"`
	// Revision is filled when the device is identified.
	Revision uint16 `json:"revision,omitempty"`
}

// NewDevice builds a Device deriving the configuration word address.
func NewDevice(name string, id, processID uint16, family Family, configPage uint32, smallRAM bool) Device {
	return Device{
		Name:       name,
		ID:         id,
		ProcessID:  processID,
		Family:     family,
		ConfigPage: configPage,
		ConfigWord: configPage + ConfigPageSize - configWordsSize,
		SmallRAM:   smallRAM,
	}
}

// Catalog owns the device descriptors. Entries are never added or removed
// after loading, so pointers returned by Lookup stay valid.
type Catalog struct {
	devices []Device
}

// NewCatalog creates a catalog from the given descriptors.
func NewCatalog(devices ...Device) *Catalog {
	return &Catalog{devices: devices}
}

// Lookup returns the descriptor matching id and processID, or nil.
func (c *Catalog) Lookup(id, processID uint16) *Device {
	for i := range c.devices {
		if c.devices[i].ID == id && c.devices[i].ProcessID == processID {
			return &c.devices[i]
		}
	}
	return nil
}

// Devices returns the catalog entries in file order.
func (c *Catalog) Devices() []Device {
	return c.devices
}

// Len returns the number of devices in the catalog.
func (c *Catalog) Len() int {
	return len(c.devices)
}

// Default returns the catalog shipped with the program.
func Default() *Catalog {
	catalog, err := Parse(strings.NewReader(defaultCatalog))
	if err != nil {
		// the embedded catalog is read from memory
		panic(err)
	}
	return catalog
}

// Load reads a catalog file.
func Load(catalogFile *paths.Path) (*Catalog, error) {
	file, err := catalogFile.Open()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	defer file.Close()
	logrus.Debugf("Reading device catalog %s", catalogFile)
	return Parse(file)
}

// Parse reads a catalog from r. Only I/O errors are returned, bad lines are skipped.
func Parse(r io.Reader) (*Catalog, error) {
	catalog := &Catalog{}
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		device, err := parseLine(line)
		if err != nil {
			logrus.WithField("line", lineNumber).Warnf("Bad device line %q: %s", line, err)
			continue
		}
		catalog.devices = append(catalog.devices, device)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading device catalog")
	}
	logrus.Debugf("Loaded %d devices", len(catalog.devices))
	return catalog, nil
}

func parseLine(line string) (Device, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 6 {
		return Device{}, errors.Errorf("expected 6 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id, err := parseHex(parts[1], 16)
	if err != nil {
		return Device{}, errors.Wrapf(err, "parsing device id %q", parts[1])
	}
	processID, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return Device{}, errors.Wrapf(err, "parsing process id %q", parts[2])
	}
	family, err := ParseFamily(parts[3])
	if err != nil {
		return Device{}, err
	}
	configPage, err := parseHex(parts[4], 32)
	if err != nil {
		return Device{}, errors.Wrapf(err, "parsing config page %q", parts[4])
	}
	smallRAM, err := strconv.Atoi(parts[5])
	if err != nil {
		return Device{}, errors.Wrapf(err, "parsing small RAM flag %q", parts[5])
	}

	return NewDevice(parts[0], uint16(id), uint16(processID), family, uint32(configPage), smallRAM != 0), nil
}

func parseHex(s string, bitSize int) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, bitSize)
}
