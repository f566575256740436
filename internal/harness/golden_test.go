package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/gemv.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRunWithGoldenFixtureDir(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/gemv.yaml")
	require.NoError(t, err)

	// Seed a fixture from a first run, then compare a second run to it.
	dir := t.TempDir()
	first, err := Run(s)
	require.NoError(t, err)
	g := goldie.New(t, goldie.WithFixtureDir(dir), goldie.WithNameSuffix(".golden"))
	require.NoError(t, g.Update(t, s.Name, []byte(first.Text)))

	result, err := RunWithGolden(t, s, goldie.WithFixtureDir(dir))
	require.NoError(t, err)
	assert.Equal(t, first.Text, result.Text, "runs are deterministic")
}

func TestScenarioGoldenIsCurrent(t *testing.T) {
	file := "testdata/scenarios/gemv.yaml"
	s, err := LoadScenario(file)
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	match, found, err := CompareGolden(GoldenPath(file), result)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, match)
}

func TestGoldenFiles(t *testing.T) {
	assert.Equal(t, filepath.Join("scen", "golden", "gemv.golden"), GoldenPath(filepath.Join("scen", "gemv.yaml")))

	path := filepath.Join(t.TempDir(), "golden", "x.golden")
	result := &Result{Text: "define i32 @f()\n"}

	_, found, err := CompareGolden(path, result)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, UpdateGolden(path, result))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, result.Text, string(data))

	match, found, err := CompareGolden(path, result)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, match)

	match, _, err = CompareGolden(path, &Result{Text: "other"})
	require.NoError(t, err)
	assert.False(t, match)
}
