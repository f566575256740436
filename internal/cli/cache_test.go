package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCache compiles scale and zero into a fresh cache and returns its path.
func seedCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	for name, doc := range map[string]string{"scale.yaml": scaleDoc, "zero.yaml": zeroDoc} {
		path := writeDoc(t, dir, name, doc)
		_, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path, "--cache", db)
		require.NoError(t, err)
	}
	return db
}

func listCache(t *testing.T, db string) []CacheEntry {
	t.Helper()
	out, err := execute(NewCacheCommand(&RootOptions{Format: "json"}), "list", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []CacheEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestCacheList(t *testing.T) {
	db := seedCache(t)

	entries := listCache(t, db)
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].Seq, entries[1].Seq)
	for _, e := range entries {
		require.Len(t, e.Functions, 1)
		assert.Equal(t, e.Module, e.Functions[0].Name)
		assert.Empty(t, e.Text)
	}

	out, err := execute(NewCacheCommand(&RootOptions{Format: "text"}), "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "scale")
	assert.Contains(t, out, "zero")
}

func TestCacheListEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(NewCacheCommand(&RootOptions{Format: "text"}), "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is empty")
}

func TestCacheShow(t *testing.T) {
	db := seedCache(t)
	entries := listCache(t, db)
	require.NotEmpty(t, entries)
	hash := entries[0].Hash

	t.Run("full hash", func(t *testing.T) {
		out, err := execute(NewCacheCommand(&RootOptions{Format: "text"}), "show", hash, "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "; module "+entries[0].Module)
		assert.Contains(t, out, "define i32 @"+entries[0].Module+"(")
	})

	t.Run("prefix", func(t *testing.T) {
		out, err := execute(NewCacheCommand(&RootOptions{Format: "json"}), "show", hash[:12], "--db", db)
		require.NoError(t, err)
		var resp struct {
			Data CacheEntry `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, hash, resp.Data.Hash)
		assert.NotEmpty(t, resp.Data.Text)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := execute(NewCacheCommand(&RootOptions{Format: "text"}), "show", "ffffffffffffffffzz", "--db", db)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeNotFound)
	})
}

func TestCacheNoDatabase(t *testing.T) {
	_, err := execute(NewCacheCommand(&RootOptions{Format: "text"}), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeInvalidConfig)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCacheConfigDatabase(t *testing.T) {
	db := seedCache(t)
	opts := &RootOptions{Format: "json", Config: &Config{Cache: db}}

	_, err := execute(NewCacheCommand(opts), "list")
	require.NoError(t, err)
}
