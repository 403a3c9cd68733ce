// Package criterion builds the query side of provider requests: which fields the
// provider should return (partial response) and which filters it should apply.
//
// A tree is made of three node kinds:
//
//   - Field: a selectable property, optionally with nested child fields
//   - Collection: a group of nodes, anonymous or named by a key
//   - Param: a scalar filter such as showDeleted=true
//
// Trees are values. Merge never mutates its inputs, so the same subtree can be
// reused across queries.
package criterion

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrConflict is returned when two nodes share an identity but not a kind.
	ErrConflict = errors.New("criterion conflict")
	// ErrNotFound is returned by Find when no criterion carries the key.
	// Callers treat it as "optional filter unset".
	ErrNotFound = errors.New("criterion not found")
)

// Node is one of Field, Collection or Param.
type Node interface {
	// Identity is the key used to detect duplicates among siblings.
	Identity() string
	node()
}

// Field selects a property of the provider resource.
type Field struct {
	Name     string
	Children []Field
}

// NewField creates a field with the given children.
func NewField(name string, children ...Field) Field {
	return Field{Name: name, Children: cloneFields(children)}
}

// Identity returns the field name.
func (f Field) Identity() string { return f.Name }

// IsLeaf reports whether the field has no nested fields.
func (f Field) IsLeaf() bool { return len(f.Children) == 0 }

func (Field) node() {}

// Collection groups nodes. An empty Key denotes an anonymous group.
type Collection struct {
	Key   string
	Items []Node
}

// NewCollection creates a collection under key ("" for anonymous).
func NewCollection(key string, items ...Node) Collection {
	return Collection{Key: key, Items: cloneNodes(items)}
}

// Identity returns the collection key.
func (c Collection) Identity() string { return c.Key }

func (Collection) node() {}

// Param is a scalar filter.
type Param struct {
	Key   string
	Value string
}

// NewParam creates a filter.
func NewParam(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Bool creates a boolean filter.
func Bool(key string, value bool) Param {
	return Param{Key: key, Value: strconv.FormatBool(value)}
}

// Identity returns the parameter key.
func (p Param) Identity() string { return p.Key }

func (Param) node() {}

// Validate checks that every field in the tree is named.
func Validate(n Node) error {
	switch v := n.(type) {
	case Field:
		if v.Name == "" {
			return fmt.Errorf("%w: field without a name", ErrConflict)
		}
		for _, child := range v.Children {
			if err := Validate(child); err != nil {
				return err
			}
		}
	case Collection:
		for _, item := range v.Items {
			if err := Validate(item); err != nil {
				return err
			}
		}
	case Param:
		if v.Key == "" {
			return fmt.Errorf("%w: parameter without a key", ErrConflict)
		}
	}
	return nil
}

// Find locates a Param or keyed Collection by key. Direct items are searched
// before nested collections.
func Find(tree Collection, key string) (Node, error) {
	if n, ok := find(tree, key); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

func find(tree Collection, key string) (Node, bool) {
	for _, item := range tree.Items {
		switch v := item.(type) {
		case Param:
			if v.Key == key {
				return v, true
			}
		case Collection:
			if v.Key != "" && v.Key == key {
				return v, true
			}
		}
	}
	for _, item := range tree.Items {
		if c, ok := item.(Collection); ok {
			if n, found := find(c, key); found {
				return n, true
			}
		}
	}
	return nil, false
}

// FindBool reads a boolean filter, returning def when it is not set.
func FindBool(tree Collection, key string, def bool) (bool, error) {
	n, err := Find(tree, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}

	var raw string
	switch v := n.(type) {
	case Param:
		raw = v.Value
	case Collection:
		raw = serializeItems(v.Items)
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("criterion %q is not a boolean: %w", key, err)
	}
	return b, nil
}

func cloneFields(in []Field) []Field {
	if len(in) == 0 {
		return nil
	}
	out := make([]Field, len(in))
	for i, f := range in {
		out[i] = Field{Name: f.Name, Children: cloneFields(f.Children)}
	}
	return out
}

func cloneNodes(in []Node) []Node {
	if len(in) == 0 {
		return nil
	}
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = clone(n)
	}
	return out
}

func clone(n Node) Node {
	switch v := n.(type) {
	case Field:
		return Field{Name: v.Name, Children: cloneFields(v.Children)}
	case Collection:
		return Collection{Key: v.Key, Items: cloneNodes(v.Items)}
	default:
		return n
	}
}

// Fields groups fields under key, e.g. Fields("fields", NewField("id")).
func Fields(key string, fields ...Field) Collection {
	items := make([]Node, len(fields))
	for i, f := range fields {
		items[i] = Field{Name: f.Name, Children: cloneFields(f.Children)}
	}
	return Collection{Key: key, Items: items}
}
