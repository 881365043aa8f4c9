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

package task

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	type args struct {
		name string
		ext  string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"pdf", args{"a.pdf", ".md"}, "a.md"},
		{"nested", args{"docs/v1/api.docx", ".md"}, "docs/v1/api.md"},
		{"double extension", args{"a.tar.gz", ".md"}, "a.tar.md"},
		{"no extension", args{"README", ".md"}, "README.md"},
		{"dotfile", args{".bashrc", ".md"}, ".bashrc.md"},
		{"dot in directory", args{"v1.2/notes", ".md"}, "v1.2/notes.md"},
		{"uppercase", args{"REPORT.PDF", ".txt"}, "REPORT.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.args.name, tt.args.ext); got != tt.want {
				t.Errorf("OutputName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailed(t *testing.T) {
	t.Run("collapses lines", func(t *testing.T) {
		o := Failed(Task{Name: "x"}, errors.New("line one\nline two\r\n\tthree"))
		assert.Equal(t, StatusFailed, o.Status)
		assert.Equal(t, "line one line two three", o.Reason)
	})
	t.Run("truncates", func(t *testing.T) {
		o := Failed(Task{Name: "x"}, errors.New(strings.Repeat("ж", 500)))
		assert.Equal(t, MaxReasonLen, utf8.RuneCountInString(o.Reason))
	})
	t.Run("nil error", func(t *testing.T) {
		o := Failed(Task{Name: "x"}, nil)
		assert.Equal(t, "unknown error", o.Reason)
	})
}

func TestTimeoutReason(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{180 * time.Second, "Timeout (180s)"},
		{3 * time.Minute, "Timeout (180s)"},
		{1500 * time.Millisecond, "Timeout (1.5s)"},
		{20 * time.Millisecond, "Timeout (20ms)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeoutReason(tt.d))
	}
	o := TimedOut(Task{Name: "x"}, 3*time.Second)
	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, "Timeout (3s)", o.Reason)
}

func TestSort(t *testing.T) {
	outcomes := []Outcome{
		Failed(Task{Name: "c.pdf"}, errors.New("x")),
		Success(Task{Name: "a.pdf"}, "/tmp/a"),
		Skipped(Task{Name: "b.docx"}, ReasonNoContent),
		Success(Task{Name: "a/b.pdf"}, "/tmp/ab"),
	}
	Sort(outcomes)
	var got []string
	for _, o := range outcomes {
		got = append(got, o.Task.Name)
	}
	assert.Equal(t, []string{"a.pdf", "a/b.pdf", "b.docx", "c.pdf"}, got)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "Status(0)", Status(0).String())
}
