package criterion

import (
	"net/url"
	"strings"
)

// FieldsKey is the query parameter carrying the partial response selector.
const FieldsKey = "fields"

// Pair is a single query parameter.
type Pair struct {
	Key   string
	Value string
}

// Query is the provider representation of a criterion tree: an ordered list of
// query parameters.
type Query struct {
	pairs []Pair
}

// Build serializes a tree into query parameters.
//
// Root params become parameters, root keyed collections become key=<items>,
// and root fields or anonymous groups are appended to the fields parameter.
// A keyed root collection produces a single key=<items> parameter.
func Build(root Collection) Query {
	var q Query
	if root.Key != "" {
		q.add(root.Key, serializeItems(root.Items))
		return q
	}
	q.addItems(root.Items)
	return q
}

func (q *Query) addItems(items []Node) {
	for _, item := range items {
		switch v := item.(type) {
		case Param:
			q.add(v.Key, v.Value)
		case Collection:
			if v.Key == "" {
				q.addItems(v.Items)
				continue
			}
			q.add(v.Key, serializeItems(v.Items))
		case Field:
			q.add(FieldsKey, serialize(v))
		}
	}
}

// add appends a value, comma-joining it to an existing parameter of the same key.
func (q *Query) add(key, value string) {
	if value == "" {
		return
	}
	for i := range q.pairs {
		if q.pairs[i].Key == key {
			q.pairs[i].Value += "," + value
			return
		}
	}
	q.pairs = append(q.pairs, Pair{Key: key, Value: value})
}

// Get returns the value of key, or "" when absent.
func (q Query) Get(key string) string {
	for _, p := range q.pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Pairs returns a copy of the parameters in order.
func (q Query) Pairs() []Pair {
	return append([]Pair(nil), q.pairs...)
}

// With returns a copy of q where key is set to value.
func (q Query) With(key, value string) Query {
	out := Query{pairs: make([]Pair, 0, len(q.pairs)+1)}
	replaced := false
	for _, p := range q.pairs {
		if p.Key == key {
			p.Value = value
			replaced = true
		}
		out.pairs = append(out.pairs, p)
	}
	if !replaced {
		out.pairs = append(out.pairs, Pair{Key: key, Value: value})
	}
	return out
}

// Values converts the query to url.Values.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q.pairs))
	for _, p := range q.pairs {
		v.Add(p.Key, p.Value)
	}
	return v
}

// Encode renders the query in parameter order.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// String renders a node in partial response syntax, e.g. items(id,start).
func String(n Node) string {
	return serialize(n)
}

func serialize(n Node) string {
	switch v := n.(type) {
	case Field:
		if v.IsLeaf() {
			return v.Name
		}
		parts := make([]string, len(v.Children))
		for i, child := range v.Children {
			parts[i] = serialize(child)
		}
		return v.Name + "(" + strings.Join(parts, ",") + ")"
	case Collection:
		inner := serializeItems(v.Items)
		if v.Key == "" {
			return inner
		}
		return v.Key + "(" + inner + ")"
	case Param:
		return v.Key + "=" + v.Value
	default:
		return ""
	}
}

func serializeItems(items []Node) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s := serialize(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}
