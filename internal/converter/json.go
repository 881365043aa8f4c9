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
	"bytes"
	"context"
	"encoding/json"
	"os"
)

// jsonConverter pretty-prints JSON documents in a fenced block.
type jsonConverter struct{}

func (jsonConverter) Accepts(info Info) bool {
	return info.MIME == "application/json" || info.Ext == ".json"
}

func (jsonConverter) Convert(ctx context.Context, path string, info Info) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	buf.WriteString("```json\n")
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// not valid JSON, keep as is.
		text, derr := decode(data, info.Charset)
		if derr != nil {
			return "", derr
		}
		buf.Truncate(len("```json\n"))
		buf.WriteString(text)
	}
	buf.WriteString("\n```\n")
	return buf.String(), nil
}
