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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_Name(t *testing.T) {
	tests := []struct {
		usage    string
		wantLong string
		want     string
	}{
		{"docfilter", "", ""},
		{"docfilter markdown [flags] < in.tar > out.tar", "markdown", "markdown"},
		{"docfilter config new [flags] <file>", "config new", "new"},
		{"docfilter version", "version", "version"},
	}
	for _, tt := range tests {
		t.Run(tt.usage, func(t *testing.T) {
			c := &Command{UsageLine: tt.usage}
			assert.Equal(t, tt.wantLong, c.LongName())
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestCommand_Lookup(t *testing.T) {
	sub := &Command{UsageLine: "docfilter config check"}
	c := &Command{UsageLine: "docfilter config", Commands: []*Command{sub}}
	assert.Same(t, sub, c.Lookup("check"))
	assert.Nil(t, c.Lookup("new"))
}

func TestSetExitStatus(t *testing.T) {
	t.Cleanup(func() { exitStatus = SNoError })
	SetExitStatus(SApplicationError)
	SetExitStatus(SInvalidParameters)
	assert.Equal(t, SApplicationError, GetExitStatus())
}

func TestStatusCode_distinct(t *testing.T) {
	codes := []StatusCode{SNoError, SGenericError, SInvalidParameters, SHelpRequested, SInitializationError, SApplicationError, SUserError, SNoContent}
	seen := make(map[StatusCode]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate status code %d", c)
		seen[c] = true
	}
}
