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

package llm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docfilter/internal/fixtures"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolve(t *testing.T) {
	netrcFile := fixtures.MkTestFileName(t, filepath.Join(t.TempDir(), "netrc"),
		"machine api.openai.com login me password sk-netrc\n"+
			"machine example.com login x password y\n")

	tests := []struct {
		name   string
		env    map[string]string
		netrc  string
		want   Credentials
		wantOK bool
	}{
		{
			name:   "nothing",
			env:    nil,
			wantOK: false,
		},
		{
			name:   "openrouter default model",
			env:    map[string]string{"OPENROUTER_API_KEY": "or-key", "OPENAI_API_KEY": "sk"},
			want:   Credentials{Provider: OpenRouter, Key: "or-key", Model: "google/gemini-2.0-flash-001", BaseURL: "https://openrouter.ai/api/v1"},
			wantOK: true,
		},
		{
			name:   "openrouter model override",
			env:    map[string]string{"OPENROUTER_API_KEY": "or-key", "OPENROUTER_MODEL": "openai/gpt-4o-mini"},
			want:   Credentials{Provider: OpenRouter, Key: "or-key", Model: "openai/gpt-4o-mini", BaseURL: "https://openrouter.ai/api/v1"},
			wantOK: true,
		},
		{
			name:   "anthropic",
			env:    map[string]string{"ANTHROPIC_API_KEY": "ak"},
			want:   Credentials{Provider: Anthropic, Key: "ak", Model: "claude-sonnet-4-5"},
			wantOK: true,
		},
		{
			name:   "netrc",
			netrc:  netrcFile,
			want:   Credentials{Provider: OpenAI, Key: "sk-netrc", Model: "gpt-4o"},
			wantOK: true,
		},
		{
			name:   "environment takes precedence over netrc",
			env:    map[string]string{"OPENAI_API_KEY": "sk-env"},
			netrc:  netrcFile,
			want:   Credentials{Provider: OpenAI, Key: "sk-env", Model: "gpt-4o"},
			wantOK: true,
		},
		{
			name:   "preferred provider from netrc wins",
			env:    map[string]string{"ANTHROPIC_API_KEY": "ak"},
			netrc:  netrcFile,
			want:   Credentials{Provider: OpenAI, Key: "sk-netrc", Model: "gpt-4o"},
			wantOK: true,
		},
		{
			name:   "missing netrc file",
			netrc:  filepath.Join(t.TempDir(), "nope"),
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolve(envMap(tt.env), tt.netrc)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNetrcPath(t *testing.T) {
	t.Setenv("NETRC", "/custom/netrc")
	assert.Equal(t, "/custom/netrc", netrcPath())
}

func TestEnv_FromEnv(t *testing.T) {
	creds := Credentials{Provider: OpenRouter, Key: "or-key", Model: "m", BaseURL: "https://openrouter.ai/api/v1"}
	env := creds.Env()
	require.Len(t, env, 3)
	for k, v := range map[string]string{EnvProvider: "openrouter", EnvKey: "or-key", EnvModel: "m"} {
		assert.Contains(t, env, k+"="+v)
		t.Setenv(k, v)
	}
	got, ok, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, creds, got)
}

func TestFromEnv(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		t.Setenv(EnvProvider, "")
		t.Setenv(EnvKey, "")
		_, ok, err := FromEnv()
		assert.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("none", func(t *testing.T) {
		t.Setenv(EnvProvider, string(None))
		t.Setenv(EnvKey, "")
		got, ok, err := FromEnv()
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, got.IsZero())
	})
	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv(EnvProvider, "acme")
		t.Setenv(EnvKey, "k")
		_, _, err := FromEnv()
		assert.ErrorIs(t, err, errUnknownProvider)
	})
}

func TestCredentials_Env_empty(t *testing.T) {
	assert.Equal(t, []string{EnvProvider + "=none"}, Credentials{}.Env())
	assert.True(t, Credentials{Provider: OpenAI}.IsZero())
}
