// Package compiler decodes IR documents into ir.Function trees.
//
// Documents are written in YAML or CUE. Both syntaxes share one decoder:
// every node is a mapping tagged with an op, mirroring the canonical
// encoding in package ir, so a document reads like the canonical form of
// the functions it holds:
//
//	ir_version: "1.0.0"
//	functions:
//	  - name: scale
//	    outputs:
//	      - {op: var, name: A, type: float64}
//	    body:
//	      - op: for
//	        var: {op: var, name: i, type: int32}
//	        ...
//
// Decoding stops at the first malformed node and returns a *CompileError
// locating it. Validate then applies document-level rules (E1xx) and
// reports all violations at once.
package compiler
