package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    Config
		wantErr string
	}{
		{
			name: "all fields",
			content: `target_triple: x86_64-unknown-linux-gnu
data_layout: "e-m:e-i64:64"
cache: cache.db
module_name: kernels
`,
			want: Config{TargetTriple: "x86_64-unknown-linux-gnu", DataLayout: "e-m:e-i64:64", Cache: "cache.db", ModuleName: "kernels"},
		},
		{name: "empty file", content: ""},
		{name: "unknown key", content: "triple: x\n", wantErr: "field triple not found"},
		{name: "bad yaml", content: "cache: [\n", wantErr: "parse config"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDoc(t, dir, filepath.Join("c", string(rune('a'+i))+".yaml"), tt.content)
			cfg, err := LoadConfig(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestLoadConfigNoPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestPick(t *testing.T) {
	assert.Equal(t, "flag", pick("flag", "config"))
	assert.Equal(t, "config", pick("", "config"))
	assert.Equal(t, "", pick("", ""))
}
