package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"
)

// node is one value of an IR document independent of the syntax it was
// written in. YAML and CUE documents share a single decoder through it.
type node interface {
	// lookup returns the named field of a mapping.
	lookup(name string) (node, bool)
	// fields returns the labelled fields of a mapping in source order.
	fields() ([]labelled, error)
	// elems returns the elements of a sequence.
	elems() ([]node, error)
	// scalar returns the text of a scalar: numbers in their source
	// spelling, booleans as "true"/"false".
	scalar() (string, error)
	isList() bool
	isMap() bool
	line() int
}

type labelled struct {
	label string
	value node
}

// yamlNode wraps a yaml.v3 node tree. Line numbers come from the parser.
type yamlNode struct {
	n *yaml.Node
}

func newYAMLNode(n *yaml.Node) yamlNode {
	for n != nil && (n.Kind == yaml.DocumentNode || n.Kind == yaml.AliasNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
			continue
		}
		if len(n.Content) == 0 {
			return yamlNode{n: nil}
		}
		n = n.Content[0]
	}
	return yamlNode{n: n}
}

func (y yamlNode) lookup(name string) (node, bool) {
	if !y.isMap() {
		return nil, false
	}
	for i := 0; i+1 < len(y.n.Content); i += 2 {
		if y.n.Content[i].Value == name {
			v := newYAMLNode(y.n.Content[i+1])
			if v.n == nil || v.n.Tag == "!!null" {
				return nil, false
			}
			return v, true
		}
	}
	return nil, false
}

func (y yamlNode) fields() ([]labelled, error) {
	if !y.isMap() {
		return nil, fmt.Errorf("expected a mapping")
	}
	out := make([]labelled, 0, len(y.n.Content)/2)
	for i := 0; i+1 < len(y.n.Content); i += 2 {
		out = append(out, labelled{label: y.n.Content[i].Value, value: newYAMLNode(y.n.Content[i+1])})
	}
	return out, nil
}

func (y yamlNode) elems() ([]node, error) {
	if !y.isList() {
		return nil, fmt.Errorf("expected a sequence")
	}
	out := make([]node, len(y.n.Content))
	for i, c := range y.n.Content {
		out[i] = newYAMLNode(c)
	}
	return out, nil
}

func (y yamlNode) scalar() (string, error) {
	if y.n == nil || y.n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("expected a scalar")
	}
	return y.n.Value, nil
}

func (y yamlNode) isList() bool { return y.n != nil && y.n.Kind == yaml.SequenceNode }
func (y yamlNode) isMap() bool  { return y.n != nil && y.n.Kind == yaml.MappingNode }

func (y yamlNode) line() int {
	if y.n == nil {
		return 0
	}
	return y.n.Line
}

// cueNode wraps an evaluated CUE value. The value must be concrete.
type cueNode struct {
	v cue.Value
}

func (c cueNode) lookup(name string) (node, bool) {
	if !c.isMap() {
		return nil, false
	}
	v := c.v.LookupPath(cue.MakePath(cue.Str(name)))
	if !v.Exists() || v.Kind() == cue.NullKind {
		return nil, false
	}
	return cueNode{v: v}, true
}

func (c cueNode) fields() ([]labelled, error) {
	iter, err := c.v.Fields()
	if err != nil {
		return nil, err
	}
	var out []labelled
	for iter.Next() {
		out = append(out, labelled{label: iter.Label(), value: cueNode{v: iter.Value()}})
	}
	return out, nil
}

func (c cueNode) elems() ([]node, error) {
	iter, err := c.v.List()
	if err != nil {
		return nil, err
	}
	var out []node
	for iter.Next() {
		out = append(out, cueNode{v: iter.Value()})
	}
	return out, nil
}

func (c cueNode) scalar() (string, error) {
	switch c.v.Kind() {
	case cue.StringKind:
		return c.v.String()
	case cue.BoolKind:
		b, err := c.v.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case cue.IntKind:
		i, err := c.v.Int(nil)
		if err != nil {
			return "", err
		}
		return i.String(), nil
	case cue.FloatKind:
		f, err := c.v.Float64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %s", c.v.IncompleteKind())
	}
}

func (c cueNode) isList() bool { return c.v.Kind() == cue.ListKind }
func (c cueNode) isMap() bool  { return c.v.Kind() == cue.StructKind }
func (c cueNode) line() int    { return c.v.Pos().Line() }
