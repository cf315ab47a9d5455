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

// Package hexfile reads Intel HEX firmware images as produced by the
// PIC24/dsPIC toolchains. Only data, end of file and extended address
// records are understood.
package hexfile

import (
	"fmt"
	"strconv"
)

// RecordType is the type field of a hex record.
type RecordType byte

const (
	Data            RecordType = 0
	EOF             RecordType = 1
	ExtendedAddress RecordType = 4
)

func (t RecordType) String() string {
	switch t {
	case Data:
		return "data"
	case EOF:
		return "eof"
	case ExtendedAddress:
		return "extended address"
	}
	return fmt.Sprintf("0x%02X", byte(t))
}

// Record is one parsed hex line. Words are read as 4 hex digits each, in
// file order.
type Record struct {
	ByteCount byte
	Address   uint16
	Type      RecordType
	Words     []uint16
}

// MalformedLineError is returned when a field of a line is not valid hex.
type MalformedLineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedLineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed hex line %d (%q): %s", e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("malformed hex line %q: %s", e.Text, e.Reason)
}

// UnsupportedRecordTypeError is returned for record types other than 0, 1 and 4.
type UnsupportedRecordTypeError struct {
	Line int
	Type byte
}

func (e *UnsupportedRecordTypeError) Error() string {
	return fmt.Sprintf("unknown hex record type 0x%02X at line %d", e.Type, e.Line)
}

// ParseRecord parses a single line, without the trailing newline. The
// checksum byte, if present, is not checked.
func ParseRecord(line string) (*Record, error) {
	p := &lineParser{line: line}
	if len(line) == 0 || line[0] != ':' {
		return nil, p.fail("missing ':' start code")
	}
	p.pos = 1

	byteCount, err := p.hex(2)
	if err != nil {
		return nil, err
	}
	address, err := p.hex(4)
	if err != nil {
		return nil, err
	}
	recordType, err := p.hex(2)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ByteCount: byte(byteCount),
		Address:   uint16(address),
		Type:      RecordType(recordType),
	}
	switch rec.Type {
	case Data:
		rec.Words = make([]uint16, 0, rec.ByteCount/2)
		for i := 0; i < int(rec.ByteCount/2); i++ {
			word, err := p.hex(4)
			if err != nil {
				return nil, err
			}
			rec.Words = append(rec.Words, uint16(word))
		}
	case ExtendedAddress:
		word, err := p.hex(4)
		if err != nil {
			return nil, err
		}
		rec.Words = []uint16{uint16(word)}
	case EOF:
	default:
		return nil, &UnsupportedRecordTypeError{Type: byte(recordType)}
	}
	return rec, nil
}

type lineParser struct {
	line string
	pos  int
}

func (p *lineParser) hex(digits int) (uint64, error) {
	if p.pos+digits > len(p.line) {
		return 0, p.fail(fmt.Sprintf("line too short, expected %d more digits at offset %d", digits, p.pos))
	}
	field := p.line[p.pos : p.pos+digits]
	value, err := strconv.ParseUint(field, 16, digits*4)
	if err != nil {
		return 0, p.fail(fmt.Sprintf("invalid hex field %q at offset %d", field, p.pos))
	}
	p.pos += digits
	return value, nil
}

func (p *lineParser) fail(reason string) error {
	return &MalformedLineError{Text: p.line, Reason: reason}
}
