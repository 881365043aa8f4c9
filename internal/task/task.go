// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package task defines the unit of conversion work and its terminal outcome.
package task

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxReasonLen is the maximum length, in characters, of a failure reason.
const MaxReasonLen = 200

// ReasonNoContent is the reason reported for conversions that produced no
// usable text.
const ReasonNoContent = "no convertible text content"

// Task describes one extracted archive entry.  It is created by the archive
// reader and must not be modified afterwards.
type Task struct {
	// Path is the absolute location of the extracted file in the scratch
	// directory.
	Path string
	// Name is the logical name of the entry in the input archive.
	Name string
	// ModTime is the modification time of the original entry.
	ModTime time.Time
	// Size is the size of the original entry in bytes.
	Size int64
}

func (t Task) String() string {
	return t.Name
}

// Status is the outcome status.
type Status uint8

const (
	StatusSuccess Status = iota + 1
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Outcome is the terminal result of processing one Task.  Exactly one
// Outcome is produced per Task.
type Outcome struct {
	Task   Task
	Status Status
	// ContentPath is the scratch file holding the converted text.  Set only
	// for StatusSuccess.
	ContentPath string
	// Reason is the skip reason or the failure description.
	Reason string
}

// Success returns a successful outcome for t, with the converted text stored
// at contentPath.
func Success(t Task, contentPath string) Outcome {
	return Outcome{Task: t, Status: StatusSuccess, ContentPath: contentPath}
}

// Skipped returns a skipped outcome for t.
func Skipped(t Task, reason string) Outcome {
	return Outcome{Task: t, Status: StatusSkipped, Reason: reason}
}

// Failed returns a failed outcome for t.  The error message is collapsed to
// a single line and truncated to MaxReasonLen characters.
func Failed(t Task, err error) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Task: t, Status: StatusFailed, Reason: Truncate(msg, MaxReasonLen)}
}

// TimedOut returns a failed outcome for t that exceeded the timeout d.
func TimedOut(t Task, d time.Duration) Outcome {
	return Outcome{Task: t, Status: StatusFailed, Reason: TimeoutReason(d)}
}

// TimeoutReason returns the failure reason for a conversion that exceeded
// the timeout d, i.e. "Timeout (180s)".  Timeouts that are not whole
// seconds are printed in full, e.g. "Timeout (1.5s)".
func TimeoutReason(d time.Duration) string {
	if d%time.Second != 0 {
		return "Timeout (" + d.String() + ")"
	}
	return fmt.Sprintf("Timeout (%ds)", int(d/time.Second))
}

// Truncate collapses all whitespace runs in s to single spaces and cuts the
// result to at most n runes.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// OutputName returns the name of the converted entry: the original name
// with the extension replaced by ext.  ext must include the leading dot.
func OutputName(name, ext string) string {
	base := path.Base(name)
	if e := path.Ext(base); e != "" && e != base {
		name = strings.TrimSuffix(name, e)
	}
	return name + ext
}

// Sort sorts outcomes by the original name of their task.  The sort is
// stable.
func Sort(outcomes []Outcome) {
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		return strings.Compare(a.Task.Name, b.Task.Name)
	})
}
