package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const scaleDoc = `ir_version: "1.0.0"
functions:
  - name: scale
    outputs:
      - &A {op: var, name: A, type: float64}
    body:
      op: for
      var: &i {op: var, name: i, type: int32}
      start: {op: literal, type: int32, value: 0}
      end: {op: property, tensor: *A, property: dimension, mode: 0}
      increment: {op: literal, type: int32, value: 1}
      body:
        op: store
        arr: &vals {op: property, tensor: *A, property: vals}
        loc: *i
        data:
          op: mul
          a: {op: load, arr: *vals, loc: *i, type: float64}
          b: {op: literal, type: float64, value: 2.0}
`

const zeroDoc = `ir_version: "1.0.0"
functions:
  - name: zero
    body:
      op: declare
      lhs: {op: var, name: x, type: int32}
      rhs: {op: literal, type: int32, value: 0}
`

const brokenDoc = `ir_version: "1.0.0"
functions:
  - name: zero
    body:
      op: declare
      lhs: {op: var, name: x, type: int32}
      rhs: {op: literal, type: int32, value: 0}
  - name: broken
    body:
      op: assign
      lhs: {op: var, name: ghost, type: int32}
      rhs: {op: literal, type: int32, value: 1}
`

const duplicateDoc = `ir_version: "1.0.0"
functions:
  - {name: f, body: {op: blank}}
  - {name: f, body: {op: blank}}
`

// writeDoc writes content to dir/name and returns the path.
func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
