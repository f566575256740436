package ir

// Version constants for IR documents and the generator.
const (
	// IRVersion is the IR document schema version this build emits and reads.
	IRVersion = "1.0.0"

	// IRVersionConstraint is the range of document versions accepted.
	IRVersionConstraint = "^1.0.0"

	// GeneratorVersion participates in module hashes so a generator change
	// invalidates cached artifacts.
	GeneratorVersion = "0.1.0"
)
