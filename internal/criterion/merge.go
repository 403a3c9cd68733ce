package criterion

import "fmt"

// Merge combines two collections of compatible scope (same key, or either side
// anonymous). Items of a are walked before items of b, keeping first-seen order:
//
//   - fields sharing a name collapse into one field whose children are merged
//     by the same rule
//   - params sharing a key are replaced by the later one
//   - keyed collections sharing a key are merged recursively
//   - anonymous collections are flattened into the current level
//
// When the result is anonymous it is a query root: root fields are moved into
// the FieldsKey collection so they merge with any projection already there.
// Duplicates inside a single input collapse as well.
//
// Nodes that share an identity but differ in kind yield ErrConflict.
func Merge(a, b Collection) (Collection, error) {
	return merge(a, b, a.Key == "" && b.Key == "")
}

func merge(a, b Collection, root bool) (Collection, error) {
	if a.Key != "" && b.Key != "" && a.Key != b.Key {
		return Collection{}, fmt.Errorf("%w: cannot merge collection %q into %q", ErrConflict, b.Key, a.Key)
	}

	key := a.Key
	if key == "" {
		key = b.Key
	}

	acc := accumulator{index: make(map[string]int), root: root}
	for _, item := range a.Items {
		if err := acc.add(item); err != nil {
			return Collection{}, err
		}
	}
	for _, item := range b.Items {
		if err := acc.add(item); err != nil {
			return Collection{}, err
		}
	}

	return Collection{Key: key, Items: acc.items}, nil
}

// MergeAll folds Merge over the given collections, skipping nil entries.
func MergeAll(base Collection, others ...*Collection) (Collection, error) {
	out := base
	for _, other := range others {
		if other == nil {
			continue
		}
		merged, err := Merge(out, *other)
		if err != nil {
			return Collection{}, err
		}
		out = merged
	}
	return out, nil
}

type accumulator struct {
	items []Node
	index map[string]int
	root  bool
}

func (acc *accumulator) add(n Node) error {
	if c, ok := n.(Collection); ok && c.Key == "" {
		for _, item := range c.Items {
			if err := acc.add(item); err != nil {
				return err
			}
		}
		return nil
	}

	if f, ok := n.(Field); ok && acc.root {
		n = Collection{Key: FieldsKey, Items: []Node{f}}
	}

	id := n.Identity()
	pos, seen := acc.index[id]
	if !seen {
		first, err := normalize(n)
		if err != nil {
			return err
		}
		acc.index[id] = len(acc.items)
		acc.items = append(acc.items, first)
		return nil
	}

	existing := acc.items[pos]
	switch incoming := n.(type) {
	case Field:
		f, ok := existing.(Field)
		if !ok {
			return conflict(id, existing, n)
		}
		children, err := mergeFields(f.Children, incoming.Children)
		if err != nil {
			return err
		}
		acc.items[pos] = Field{Name: f.Name, Children: children}
	case Param:
		if _, ok := existing.(Param); !ok {
			return conflict(id, existing, n)
		}
		acc.items[pos] = incoming
	case Collection:
		c, ok := existing.(Collection)
		if !ok {
			return conflict(id, existing, n)
		}
		merged, err := merge(c, incoming, false)
		if err != nil {
			return err
		}
		acc.items[pos] = merged
	default:
		return fmt.Errorf("%w: unsupported node %T", ErrConflict, n)
	}
	return nil
}

// normalize returns a copy of n with repeated children collapsed.
func normalize(n Node) (Node, error) {
	switch v := n.(type) {
	case Field:
		children, err := mergeFields(nil, v.Children)
		if err != nil {
			return nil, err
		}
		return Field{Name: v.Name, Children: children}, nil
	case Collection:
		return merge(Collection{Key: v.Key}, v, false)
	default:
		return clone(n), nil
	}
}

func mergeFields(a, b []Field) ([]Field, error) {
	merged, err := merge(Collection{Items: fieldNodes(a)}, Collection{Items: fieldNodes(b)}, false)
	if err != nil {
		return nil, err
	}

	out := make([]Field, 0, len(merged.Items))
	for _, item := range merged.Items {
		out = append(out, item.(Field))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func fieldNodes(fields []Field) []Node {
	out := make([]Node, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func conflict(id string, existing, incoming Node) error {
	return fmt.Errorf("%w: %q is both a %s and a %s", ErrConflict, id, kind(existing), kind(incoming))
}

func kind(n Node) string {
	switch n.(type) {
	case Field:
		return "field"
	case Collection:
		return "collection"
	case Param:
		return "param"
	default:
		return fmt.Sprintf("%T", n)
	}
}
