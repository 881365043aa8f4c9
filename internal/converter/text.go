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
	"os"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// textExt are the extensions of the text files that are not always detected
// as text, i.e. empty or with the binary looking contents.
var textExt = []string{
	".txt", ".md", ".markdown", ".rst", ".org", ".adoc", ".tex",
	".go", ".py", ".js", ".ts", ".rb", ".rs", ".c", ".h", ".cpp", ".java", ".sh",
	".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".xml", ".sql", ".log",
}

// textConverter passes the plain text through, decoding it to UTF-8.
type textConverter struct{}

func (textConverter) Accepts(info Info) bool {
	return info.Text || slices.Contains(textExt, info.Ext)
}

func (textConverter) Convert(ctx context.Context, path string, info Info) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decode(data, info.Charset)
}

// decode returns data as a string, decoding it from charset if data is not
// valid UTF-8.  When no charset is known, windows-1252 is assumed.
func decode(data []byte, charset string) (string, error) {
	if bytes.HasPrefix(data, []byte("\xef\xbb\xbf")) {
		data = data[3:]
	}
	if utf8.Valid(data) && !isUTF16(charset) {
		return string(data), nil
	}
	enc := encodingFor(charset)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isUTF16(charset string) bool {
	return charset == "utf-16le" || charset == "utf-16be"
}

func encodingFor(charset string) encoding.Encoding {
	switch charset {
	case "", "utf-8", "us-ascii", "iso-8859-1":
		// iso-8859-1 is the mimetype fallback for 8-bit text.
		return charmap.Windows1252
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	}
	if enc, err := htmlindex.Get(charset); err == nil {
		return enc
	}
	return charmap.Windows1252
}
