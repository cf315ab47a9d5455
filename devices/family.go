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

import "fmt"

// Family identifies a PIC24/dsPIC device family. The set is closed.
type Family int

const (
	DsPIC30F Family = iota
	DsPIC33F
	DsPIC33E
	PIC24H
	PIC24F
	PIC24FK
	PIC24E
)

func (f Family) String() string {
	switch f {
	case DsPIC30F:
		return "dsPIC30F"
	case DsPIC33F:
		return "dsPIC33F"
	case DsPIC33E:
		return "dsPIC33E"
	case PIC24H:
		return "PIC24H"
	case PIC24F:
		return "PIC24F"
	case PIC24FK:
		return "PIC24FK"
	case PIC24E:
		return "PIC24E"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily maps a catalog family name to its Family. Names are case sensitive.
func ParseFamily(name string) (Family, error) {
	switch name {
	case "dsPIC30F":
		return DsPIC30F, nil
	case "dsPIC33F":
		return DsPIC33F, nil
	case "dsPIC33E":
		return DsPIC33E, nil
	case "PIC24H":
		return PIC24H, nil
	case "PIC24F":
		return PIC24F, nil
	case "PIC24FK":
		return PIC24FK, nil
	case "PIC24E":
		return PIC24E, nil
	}
	return 0, fmt.Errorf("unrecognized device family: %s", name)
}

// MarshalText lets families print by name in JSON output.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
