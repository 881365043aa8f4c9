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

package converter

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

// csvConverter renders comma or tab separated values as a markdown table.
type csvConverter struct{}

func (csvConverter) Accepts(info Info) bool {
	return info.MIME == "text/csv" || info.MIME == "text/tab-separated-values" || info.Ext == ".csv" || info.Ext == ".tsv"
}

func (csvConverter) Convert(ctx context.Context, path string, info Info) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return "", err
	}
	cr := csv.NewReader(strings.NewReader(text))
	if info.Ext == ".tsv" || info.MIME == "text/tab-separated-values" {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, rec)
	}
	return table(trimRows(rows)), nil
}
