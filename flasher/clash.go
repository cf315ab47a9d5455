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

package flasher

import (
	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/protocol"
	"golang.org/x/exp/slices"
)

// pageBasedFamilies keep the bootloader in the first program pages.
var pageBasedFamilies = []devices.Family{
	devices.PIC24H,
	devices.DsPIC33F,
	devices.PIC24E,
	devices.DsPIC33E,
	devices.PIC24FK,
	devices.PIC24F,
}

// configPageFamilies store the configuration words in the last flash page.
var configPageFamilies = []devices.Family{
	devices.PIC24F,
	devices.PIC24E,
	devices.DsPIC33E,
}

// legacyConfigBitsFamilies get config bits written by version 0 firmware.
var legacyConfigBitsFamilies = []devices.Family{
	devices.PIC24H,
	devices.PIC24FK,
	devices.DsPIC33F,
}

// CheckPage reports whether a data record starting at address is safe.
// On page based families the bootloader page start is always rejected.
func CheckPage(address uint32, family devices.Family) bool {
	return !(slices.Contains(pageBasedFamilies, family) && address == protocol.BootloaderPage)
}

// CheckReservedWord reports whether data may be stored at address. Words
// between ReservedStart and ProgramStart must stay erased on page based families.
func CheckReservedWord(address uint32, data uint16, family devices.Family) bool {
	return !(slices.Contains(pageBasedFamilies, family) &&
		address >= protocol.ReservedStart && address < protocol.ProgramStart &&
		data != protocol.ErasedWord)
}

// CheckConfigRegion reports whether data may be stored at address when the
// device keeps its configuration words in the last flash page.
func CheckConfigRegion(address uint32, data uint16, family devices.Family, configPage, configWord uint32, configBitsEnabled bool) bool {
	if !slices.Contains(configPageFamilies, family) || configBitsEnabled {
		return true
	}
	return !(address >= configPage && address < configWord && data != protocol.ErasedWord)
}
