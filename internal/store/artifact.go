package store

// Artifact is one cached module.
type Artifact struct {
	ID               string
	ModuleName       string
	ModuleHash       string
	IRVersion        string
	GeneratorVersion string
	TargetTriple     string
	// Text is the printed LLVM module.
	Text string
	Seq  int64
	// Functions is filled by LookupArtifact; ListArtifacts leaves it nil.
	Functions []Function
}

// Function is one function defined by an artifact.
type Function struct {
	ArtifactID string
	Position   int
	Name       string
	Hash       string
	Params     []string
}
