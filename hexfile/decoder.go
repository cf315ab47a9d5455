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

package hexfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
)

// Block is the content of one data record, placed at its word address.
type Block struct {
	Line    int
	Address uint32
	Words   []uint16
}

// Decoder walks a hex stream and yields data blocks with the extended
// address of preceding records already applied.
type Decoder struct {
	scanner         *bufio.Scanner
	line            int
	extendedAddress uint32
	eof             bool
}

// NewDecoder returns a Decoder reading from r. The extended address starts at zero.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 64*1024)
	return &Decoder{scanner: scanner}
}

// ExtendedAddress returns the offset currently applied to data records.
func (d *Decoder) ExtendedAddress() uint32 {
	return d.extendedAddress
}

// Next returns the next data block, or io.EOF when the stream is exhausted.
// Blank lines are skipped. Any malformed line stops decoding.
func (d *Decoder) Next() (*Block, error) {
	for d.scanner.Scan() {
		d.line++
		text := strings.TrimSpace(d.scanner.Text())
		if text == "" {
			continue
		}

		rec, err := ParseRecord(text)
		if err != nil {
			var malformed *MalformedLineError
			var unsupported *UnsupportedRecordTypeError
			if errors.As(err, &malformed) {
				malformed.Line = d.line
			} else if errors.As(err, &unsupported) {
				unsupported.Line = d.line
			}
			return nil, err
		}

		switch rec.Type {
		case Data:
			if d.eof {
				logrus.WithField("line", d.line).Warn("Data record after end of file record")
			}
			return &Block{
				Line:    d.line,
				Address: (uint32(rec.Address) + d.extendedAddress) / 2,
				Words:   rec.Words,
			}, nil
		case EOF:
			d.eof = true
		case ExtendedAddress:
			d.extendedAddress = uint32(rec.Words[0]) << 16
			logrus.Debugf("Extended address set to 0x%08X", d.extendedAddress)
		}
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading hex file: %w", err)
	}
	return nil, io.EOF
}

// ValidateChecksums checks every record checksum of a complete hex image.
// Some historical images carry wrong checksums, so this check is optional.
func ValidateChecksums(data []byte) error {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("invalid hex file: %w", err)
	}
	return nil
}
