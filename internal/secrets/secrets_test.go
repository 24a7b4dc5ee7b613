// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "  sk-abc123  \n")
				writeFile(t, dir, "other-key", "value")
				return dir
			},
			want: map[string]string{
				"openai-api-key": "sk-abc123",
				"other-key":      "value",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "ignored")
				return dir
			},
			want: map[string]string{
				"openai-api-key": "valid-key",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAIKey_EnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openai-api-key", "file-key")

	t.Setenv("OPENAI_API_KEY", "env-key")
	assert.Equal(t, "env-key", OpenAIKey(dir))
}

func TestOpenAIKey_FallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openai-api-key", "file-key\n")

	t.Setenv("OPENAI_API_KEY", "")
	assert.Equal(t, "file-key", OpenAIKey(dir))
}

func TestOpenAIKey_Unset(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	assert.Equal(t, "", OpenAIKey(t.TempDir()))
}
