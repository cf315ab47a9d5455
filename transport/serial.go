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

package transport

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// TransportError is returned when the link misbehaves.
type TransportError struct {
	err string
}

func (e TransportError) Error() string {
	return e.err
}

// Serial is a Transport over a serial port.
type Serial struct {
	port    serial.Port
	address string
}

// OpenSerial opens portAddress at baudRate, 8N1, with the given read timeout.
func OpenSerial(portAddress string, baudRate int, readTimeout time.Duration) (*Serial, error) {
	port, err := serial.Open(portAddress, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	logrus.Infof("Opened port %s at %d", portAddress, baudRate)

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		err = fmt.Errorf("could not set timeout on serial port: %s", err)
		logrus.Error(err)
		return nil, err
	}
	return &Serial{port: port, address: portAddress}, nil
}

// ListPorts returns the serial ports available on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Address returns the port name.
func (s *Serial) Address() string {
	return s.address
}

// Clear discards the input buffer.
func (s *Serial) Clear() error {
	return s.port.ResetInputBuffer()
}

// WriteBytes writes data to the port, retrying partial writes.
func (s *Serial) WriteBytes(data []byte) error {
	logrus.Tracef("Writing % X", data)
	for {
		sent, err := s.port.Write(data)
		if err != nil {
			err = fmt.Errorf("writing data: %s", err)
			logrus.Error(err)
			return err
		}
		if sent == len(data) {
			return nil
		}
		logrus.Debugf("Sent %d bytes out of %d", sent, len(data))
		data = data[sent:]
	}
}

// ReadBytes fills buffer with data read from the port. A read returning no
// data means the timeout expired.
func (s *Serial) ReadBytes(buffer []byte) error {
	read := 0
	for read < len(buffer) {
		n, err := s.port.Read(buffer[read:])
		if err != nil {
			logrus.Error(err)
			return err
		}
		if n == 0 {
			err = TransportError{err: fmt.Sprintf("timeout reading from %s: got %d of %d bytes", s.address, read, len(buffer))}
			logrus.Error(err)
			return err
		}
		read += n
	}
	logrus.Tracef("Read % X", buffer)
	return nil
}

// SetControlLine drives RTS or DTR.
func (s *Serial) SetControlLine(line ControlLine, level bool) error {
	switch line {
	case RTS:
		return s.port.SetRTS(level)
	case DTR:
		return s.port.SetDTR(level)
	}
	return fmt.Errorf("unknown control line %s", line)
}

// Close the port used by this transport
func (s *Serial) Close() error {
	return s.port.Close()
}
