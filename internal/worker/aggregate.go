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

package worker

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"

	"github.com/rusq/docfilter/internal/task"
)

// Reporter receives the outcomes in the final order.
type Reporter interface {
	Report(o task.Outcome)
}

// Summary is the count of outcomes by status.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
	)
}

func (s *Summary) add(o task.Outcome) {
	s.Total++
	switch o.Status {
	case task.StatusSuccess:
		s.Succeeded++
	case task.StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Collect drains the outcome channel, sorts outcomes by the original name
// and reports each of them to rep, if it is not nil.  It returns the sorted
// outcomes and the summary.
func Collect(outC <-chan task.Outcome, rep Reporter) ([]task.Outcome, Summary) {
	var outcomes []task.Outcome
	for o := range outC {
		outcomes = append(outcomes, o)
	}
	task.Sort(outcomes)

	var s Summary
	for _, o := range outcomes {
		s.add(o)
		if rep != nil {
			rep.Report(o)
		}
	}
	return outcomes, s
}

// Diag is the Reporter that prints a diagnostic line per outcome:
//
//	x docs/a.md
//	[Skip] docs/b.docx: no convertible text content
//	[Convert Failed] docs/c.pdf: Timeout (180s)
type Diag struct {
	mu   sync.Mutex
	w    io.Writer
	ext  string
	ok   *color.Color
	skip *color.Color
	fail *color.Color
}

// NewDiag returns the Diag reporter writing to w.  ext is the extension of
// the converted entries.  If colour is true, the status markers are
// coloured.
func NewDiag(w io.Writer, ext string, colour bool) *Diag {
	d := &Diag{
		w:    w,
		ext:  ext,
		ok:   color.New(color.FgGreen),
		skip: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{d.ok, d.skip, d.fail} {
		if colour {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return d
}

func (d *Diag) Report(o task.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch o.Status {
	case task.StatusSuccess:
		fmt.Fprintf(d.w, "%s %s\n", d.ok.Sprint("x"), task.OutputName(o.Task.Name, d.ext))
	case task.StatusSkipped:
		fmt.Fprintf(d.w, "%s %s: %s\n", d.skip.Sprint("[Skip]"), o.Task.Name, o.Reason)
	default:
		fmt.Fprintf(d.w, "%s %s: %s\n", d.fail.Sprint("[Convert Failed]"), o.Task.Name, o.Reason)
	}
}
