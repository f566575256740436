// Package harness runs golden scenarios against the code generator.
//
// A scenario names an IR document, compiles it through the driver with a
// fresh in-memory artifact store, and checks assertions against the
// emitted module. The module text can also be compared with a golden file.
//
// # Scenario Format
//
//	name: scale
//	description: "Scales the values of a dense vector"
//	ir: ../compiler/testdata/scale.yaml   # or an inline document
//	module: kernels                       # optional, defaults to name
//	target_triple: x86_64-unknown-linux-gnu  # optional
//	assertions:
//	  - type: contains
//	    text: "fmul double"
//	  - type: not_contains
//	    func: scale
//	    text: "call"
//	  - type: function_count
//	    count: 1
//	  - type: param_count
//	    func: scale
//	    count: 1
//	  - type: error_code
//	    func: broken
//	    code: UNBOUND_VARIABLE
//
// A relative ir path is resolved against the scenario file's directory.
//
// # Assertion Types
//
//   - contains: the module (or one function) contains text
//   - not_contains: the module (or one function) does not contain text
//   - function_count: exactly count functions compiled
//   - param_count: function func has exactly count parameters
//   - error_code: a function failed with code, or the document failed
//     validation with code (E1xx)
//
// Every function of the document is compiled even if an earlier one fails,
// so error_code assertions can see all failures.
package harness
