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

package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// YesNo asks the question on stderr and reads the answer from stdin.  Stdout
// is left alone, as it may carry the command output.
func YesNo(message string) bool {
	return YesNoWR(os.Stderr, os.Stdin, message)
}

// YesNoWR asks the question on w until r gives a yes or no answer.  An empty
// answer or the end of input mean "no".
func YesNoWR(w io.Writer, r io.Reader, message string) bool {
	sc := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, message, "? (y/N) ")
		if !sc.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		}
		fmt.Fprintln(w, "Please answer yes or no.")
	}
}
