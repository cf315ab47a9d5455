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

import "fmt"

// Status is the coarse phase reported to a ProgressSink.
type Status int

const (
	StatusIdle Status = iota
	StatusBusy
	StatusProgramming
	StatusVerifying
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusBusy:
		return "busy"
	case StatusProgramming:
		return "programming"
	case StatusVerifying:
		return "verifying"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ProgressSink receives progress events. It is called synchronously from the
// programming loop and must return quickly.
type ProgressSink interface {
	OnProgress(status Status, percent int)
}

// ProgressFunc adapts a function to a ProgressSink.
type ProgressFunc func(status Status, percent int)

// OnProgress calls f.
func (f ProgressFunc) OnProgress(status Status, percent int) {
	f(status, percent)
}
