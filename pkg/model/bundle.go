package model

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

//go:embed data/miserables.json
var miserablesJSON []byte

type bundleFile struct {
	Nodes []map[string]any `json:"nodes"`
	Links []map[string]any `json:"links"`
}

// Bundled returns a fresh copy of the embedded character co-occurrence
// dataset.
func Bundled() *Graph {
	g, err := DecodeBundle(bytes.NewReader(miserablesJSON))
	if err != nil {
		panic(fmt.Sprintf("embedded dataset is invalid: %v", err))
	}
	return g
}

// LoadBundleFile reads a {"nodes": [...], "links": [...]} file.
func LoadBundleFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()

	g, err := DecodeBundle(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// DecodeBundle parses an already-normalized graph. Link endpoints are node
// identities; unknown keys are kept as attributes.
func DecodeBundle(r io.Reader) (*Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw bundleFile
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}

	nodes := make([]*Node, 0, len(raw.Nodes))
	for i, fields := range raw.Nodes {
		id, ok := scalarString(fields["id"])
		if !ok || id == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrEmptyNodeID)
		}
		n := &Node{ID: id, Label: id, Attrs: fields}
		for _, key := range []string{"label", "name"} {
			if s, ok := scalarString(fields[key]); ok && s != "" {
				n.Label = s
				break
			}
		}
		if s, ok := scalarString(fields["group"]); ok {
			n.Group = s
		}
		nodes = append(nodes, n)
	}

	links := make([]*Link, 0, len(raw.Links))
	for i, fields := range raw.Links {
		source, err := SingleRef(endpoint(fields["source"]))
		if err != nil {
			return nil, fmt.Errorf("link %d source: %w", i, err)
		}
		target, err := SingleRef(endpoint(fields["target"]))
		if err != nil {
			return nil, fmt.Errorf("link %d target: %w", i, err)
		}
		l := &Link{Source: source, Target: target, Attrs: fields}
		if s, ok := scalarString(fields["id"]); ok {
			l.ID = s
		}
		if v, ok := toFloat(fields["value"]); ok {
			l.Value = &v
		}
		links = append(links, l)
	}

	return NewGraph(nodes, links), nil
}

// endpoint normalizes numeric ids so SingleRef sees a string.
func endpoint(v any) any {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}
