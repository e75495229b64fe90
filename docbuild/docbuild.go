package docbuild

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
)

// Tree is a declarative document tree node. Pattern: Builder --
// chained Set/Child calls assemble the tree, render methods emit it.
type Tree struct {
	parent *Tree
	values map[string]any
}

// New returns an empty root tree.
func New() *Tree {
	return &Tree{values: map[string]any{}}
}

// FromMap wraps an already-decoded document as a root tree.
func FromMap(values map[string]any) *Tree {
	if values == nil {
		values = map[string]any{}
	}

	return &Tree{values: values}
}

// Set stores a leaf value under key and returns the same node for
// chaining. String leaves may contain {{VAR}} placeholders.
func (t *Tree) Set(key string, value any) *Tree {
	t.values[key] = value

	return t
}

// Child creates a nested section under key and returns it.
func (t *Tree) Child(key string) *Tree {
	child := &Tree{
		parent: t,
		values: map[string]any{},
	}
	t.values[key] = child

	return child
}

// Up returns the parent node. The root returns itself.
func (t *Tree) Up() *Tree {
	if t.parent == nil {
		return t
	}

	return t.parent
}

// Root returns the root of the tree.
func (t *Tree) Root() *Tree {
	for t.parent != nil {
		t = t.parent
	}

	return t
}

// YAML renders the node and everything below it as YAML, expanding
// {{VAR}} placeholders in string leaves from vars. Pass nil vars to
// skip expansion.
func (t *Tree) YAML(vars map[string]any) ([]byte, error) {
	const errCtx = "rendering yaml"

	by, err := yaml.Marshal(t.materialize(vars))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return by, nil
}

// JSON renders the node and everything below it as indented JSON,
// expanding {{VAR}} placeholders in string leaves from vars. Pass nil
// vars to skip expansion.
func (t *Tree) JSON(vars map[string]any) ([]byte, error) {
	const errCtx = "rendering json"

	by, err := json.MarshalIndent(
		t.materialize(vars), "", "  ",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return by, nil
}

// materialize resolves nested nodes into plain maps and expands
// placeholders in string leaves.
func (t *Tree) materialize(
	vars map[string]any,
) map[string]any {
	out := make(map[string]any, len(t.values))

	for key, value := range t.values {
		out[key] = materializeValue(value, vars)
	}

	return out
}

// materializeValue recursively resolves one value.
func materializeValue(value any, vars map[string]any) any {
	switch v := value.(type) {
	case *Tree:
		return v.materialize(vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = materializeValue(item, vars)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = materializeValue(item, vars)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = expand(item, vars)
		}

		return out
	case string:
		return expand(v, vars)
	default:
		return v
	}
}

// expand substitutes {{VAR}} placeholders. Unknown variables are
// preserved as-is.
func expand(s string, vars map[string]any) string {
	if len(vars) == 0 {
		return s
	}

	return fasttemplate.ExecuteStringStd(
		s, "{{", "}}", vars,
	)
}
