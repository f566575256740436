package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tensorgen", cmd.Use)
	assert.Contains(t, cmd.Long, "LLVM IR")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"compile"}, {"verify"}, {"watch"}, {"cache"}, {"cache", "list"}, {"cache", "show"}, {"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	for _, name := range []string{"cache", "triple", "datalayout", "module", "collect-all"} {
		assert.NotNil(t, compileCmd.Flags().Lookup(name), name)
	}
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)
	require.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "zero.yaml", zeroDoc)

	_, err := execute(NewRootCommand(), "--format", "xml", "compile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "zero.yaml", zeroDoc)
	cfg := writeDoc(t, dir, "tensorgen.yaml", "module_name: fromconfig\ntarget_triple: x86_64-unknown-linux-gnu\n")

	out, err := execute(NewRootCommand(), "--config", cfg, "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fromconfig")
	assert.Contains(t, out, `target triple = "x86_64-unknown-linux-gnu"`)
}

func TestRootBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "zero.yaml", zeroDoc)

	_, err := execute(NewRootCommand(), "--config", filepath.Join(dir, "missing.yaml"), "compile", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
