package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tensorgen/internal/ir"
)

// Document is one decoded IR file.
type Document struct {
	// Source is the file the document was read from, if any.
	Source    string
	IRVersion string
	Functions []*ir.Function
	// Lines holds the source line of each function, parallel to Functions.
	// Zero when unknown.
	Lines []int
}

// DecodeYAML decodes an IR document written in YAML. filename is used in
// error messages only.
func DecodeYAML(data []byte, filename string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &CompileError{File: filename, Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	return DecodeYAMLNode(&root, filename)
}

// DecodeYAMLNode decodes an IR document already parsed by yaml.v3, such as
// one embedded in a larger file. Line numbers refer to the enclosing file.
func DecodeYAMLNode(root *yaml.Node, filename string) (*Document, error) {
	n := newYAMLNode(root)
	if n.n == nil || n.n.Kind == 0 {
		return nil, &CompileError{File: filename, Message: "empty document"}
	}
	b := &builder{file: filename}
	return b.document(n)
}

// DecodeCUE decodes an IR document from an evaluated CUE value. The value
// must be concrete; constraints and defaults are resolved by CUE first.
func DecodeCUE(v cue.Value) (*Document, error) {
	filename := v.Pos().Filename()
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}
	b := &builder{file: filename}
	return b.document(cueNode{v: v})
}

// CompileCUE evaluates CUE source and decodes it.
func CompileCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}
	return DecodeCUE(v)
}

// LoadFile reads one document, choosing the syntax by extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc *Document
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		doc, err = DecodeYAML(data, path)
	case ".cue":
		doc, err = CompileCUE(data, path)
	default:
		return nil, &CompileError{File: path, Message: "unknown document type, want .yaml, .yml or .cue"}
	}
	if err != nil {
		return nil, err
	}
	doc.Source = path
	return doc, nil
}

// LoadMode controls how errors are handled while loading a directory.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult holds the documents decoded from a directory.
type LoadResult struct {
	Documents []*Document
	FileCount int
}

// Functions returns every function of every document in load order.
func (r *LoadResult) Functions() []*ir.Function {
	var fns []*ir.Function
	for _, d := range r.Documents {
		fns = append(fns, d.Functions...)
	}
	return fns
}

// LoadDir loads every IR document under dir. Documents are loaded in
// lexical path order so results are deterministic. Each document is also
// validated; validation errors are returned like decode errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("stat %s: %w", dir, err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindDocuments(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no IR documents found in %s", dir)}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, path := range files {
		doc, err := LoadFile(path)
		if err == nil {
			if verrs := Validate(doc); len(verrs) > 0 {
				err = &DocumentError{File: path, Errors: verrs}
			}
		}
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, errs
}

// IsDocument reports whether path has an IR document extension.
func IsDocument(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// FindDocuments walks dir and returns all IR document paths, sorted.
func FindDocuments(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDocument(path) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, filename string) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{File: filename, Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{File: filename, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Line = positions[0].Line()
		if f := positions[0].Filename(); f != "" {
			ce.File = f
		}
	}
	return ce
}
