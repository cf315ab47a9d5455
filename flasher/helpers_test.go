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
	"fmt"
	"strings"

	"github.com/pic24tools/pic24-fwuploader/devices"
	"github.com/pic24tools/pic24-fwuploader/transport/transporttest"
)

var testCatalog = devices.NewCatalog(
	devices.NewDevice("dsPIC30F4011", 0x0101, 0, devices.DsPIC30F, 0x0, true),
	devices.NewDevice("PIC24HJ128GP502", 0x067D, 0, devices.PIC24H, 0x0, false),
	devices.NewDevice("PIC24FJ64GA002", 0x0447, 3, devices.PIC24F, 0xA800, true),
	devices.NewDevice("PIC24F16KA102", 0x4508, 1, devices.PIC24FK, 0x0, true),
	devices.NewDevice("dsPIC33EP64GP502", 0x1C18, 1, devices.DsPIC33E, 0xAC00, false),
	devices.NewDevice("dsPIC33FJ32GP202", 0x0641, 0, devices.DsPIC33F, 0x0, true),
	devices.NewDevice("PIC24EP64GP202", 0x1D48, 1, devices.PIC24E, 0xAC00, false),
)

type progressEvent struct {
	Status  Status
	Percent int
}

type progressRecorder struct {
	events []progressEvent
}

func (r *progressRecorder) OnProgress(status Status, percent int) {
	r.events = append(r.events, progressEvent{status, percent})
}

func (r *progressRecorder) last() progressEvent {
	return r.events[len(r.events)-1]
}

// newSession returns an identified session on a simulated device.
func newSession(name string, opts ...Option) (*PicFlasher, *transporttest.Device, *progressRecorder) {
	var d *devices.Device
	for _, dev := range testCatalog.Devices() {
		if dev.Name == name {
			dev := dev
			d = &dev
		}
	}
	if d == nil {
		panic("no test device " + name)
	}
	rowSize := 512
	switch {
	case d.Family == devices.PIC24FK:
		rowSize = 32
	case d.SmallRAM:
		rowSize = 64
	}
	device := transporttest.NewDevice(d.ID, byte(d.ProcessID), 0x02, rowSize)
	recorder := &progressRecorder{}
	f := New(device, testCatalog, append([]Option{WithProgress(recorder)}, opts...)...)
	if _, err := f.ReadDevice(); err != nil {
		panic(err)
	}
	recorder.events = nil
	device.Frames = nil
	return f, device, recorder
}

func record(recordType byte, address uint16, data ...byte) string {
	sum := byte(len(data)) + byte(address>>8) + byte(address) + recordType
	var sb strings.Builder
	fmt.Fprintf(&sb, ":%02X%04X%02X", len(data), address, recordType)
	for _, b := range data {
		sum += b
		fmt.Fprintf(&sb, "%02X", b)
	}
	fmt.Fprintf(&sb, "%02X", byte(-int(sum)))
	return sb.String()
}

// dataAt returns the records storing words from wordAddress on.
func dataAt(wordAddress uint32, words ...uint16) []string {
	byteAddress := wordAddress * 2
	var data []byte
	for _, w := range words {
		data = append(data, byte(w>>8), byte(w))
	}
	upper := uint16(byteAddress >> 16)
	return []string{
		record(4, 0, byte(upper>>8), byte(upper)),
		record(0, uint16(byteAddress), data...),
	}
}

// instructions encodes 24 bit instructions as hex file words.
func instructions(values ...uint32) []uint16 {
	var words []uint16
	for _, v := range values {
		words = append(words, uint16(byte(v))<<8|uint16(byte(v>>8)), uint16(byte(v>>16))<<8)
	}
	return words
}

func hexImage(records ...[]string) string {
	var lines []string
	for _, r := range records {
		lines = append(lines, r...)
	}
	lines = append(lines, record(1, 0))
	return strings.Join(lines, "\n") + "\n"
}
