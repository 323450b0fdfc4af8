package model

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Record is one raw row of a remote collection.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// FieldMapping names the entity columns used for node label and group.
type FieldMapping struct {
	Label string `yaml:"label,omitempty"`
	Group string `yaml:"group,omitempty"`
}

// DefaultMapping matches the people/relationships base the remote path was
// built for.
func DefaultMapping() FieldMapping {
	return FieldMapping{Label: "Person", Group: "Position"}
}

// NodeFromRecord copies every field of the row into the node's attributes and
// attaches the row identity.
func NodeFromRecord(r Record, m FieldMapping) *Node {
	attrs := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		attrs[k] = v
	}
	attrs["id"] = r.ID

	n := &Node{ID: r.ID, Label: r.ID, Attrs: attrs}
	if s, ok := scalarString(r.Fields[m.Label]); ok && s != "" {
		n.Label = s
	}
	if s, ok := scalarString(r.Fields[m.Group]); ok {
		n.Group = s
	}
	return n
}

// LinkFromRecord copies every field of the row and replaces the source and
// target reference lists with the scalar identity they hold.
func LinkFromRecord(r Record) (*Link, error) {
	source, err := SingleRef(r.Fields["source"])
	if err != nil {
		return nil, fmt.Errorf("relationship %s source: %w", r.ID, err)
	}
	target, err := SingleRef(r.Fields["target"])
	if err != nil {
		return nil, fmt.Errorf("relationship %s target: %w", r.ID, err)
	}

	attrs := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		attrs[k] = v
	}
	attrs["id"] = r.ID
	attrs["source"] = nullable(source)
	attrs["target"] = nullable(target)

	l := &Link{ID: r.ID, Source: source, Target: target, Attrs: attrs}
	if v, ok := toFloat(r.Fields["value"]); ok {
		l.Value = &v
	}
	return l, nil
}

// FromRecords joins the entity and relationship rows of one load cycle into
// a graph, preserving row order. The result is not yet resolved.
func FromRecords(entities, relationships []Record, m FieldMapping) (*Graph, error) {
	nodes := make([]*Node, 0, len(entities))
	for _, r := range entities {
		nodes = append(nodes, NodeFromRecord(r, m))
	}
	links := make([]*Link, 0, len(relationships))
	for _, r := range relationships {
		l, err := LinkFromRecord(r)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return NewGraph(nodes, links), nil
}

// SingleRef extracts the identity held by a linked-record field. Absent or
// null fields and empty lists yield "" (null). A list linking several
// records resolves to its first element. A bare string is accepted as an
// already-resolved identity.
func SingleRef(v any) (string, error) {
	switch ref := v.(type) {
	case nil:
		return "", nil
	case string:
		return ref, nil
	case []string:
		if len(ref) == 0 {
			return "", nil
		}
		return ref[0], nil
	case []any:
		if len(ref) == 0 || ref[0] == nil {
			return "", nil
		}
		if s, ok := scalarString(ref[0]); ok {
			return s, nil
		}
		return "", fmt.Errorf("%w: element is %T", ErrBadReference, ref[0])
	}
	return "", fmt.Errorf("%w: got %T", ErrBadReference, v)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case []any:
		// Multi-select columns: use the first choice.
		if len(x) > 0 {
			return scalarString(x[0])
		}
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
