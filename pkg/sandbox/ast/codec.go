package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parser turns source text into a syntax tree.
// The sandbox does not ship a source-language parser; hosts plug theirs in
// through this interface.
type Parser interface {
	Parse(source string) (*Node, error)
}

// Format identifies a serialized tree encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DocumentParser is a Parser for trees that were serialized by an external
// parser as YAML or JSON documents.
type DocumentParser struct {
	Format Format
	File   string // label attached to locations without a file
}

// Parse implements Parser.
func (p *DocumentParser) Parse(source string) (*Node, error) {
	switch p.Format {
	case FormatJSON:
		return DecodeJSON([]byte(source), p.File)
	case FormatYAML, "":
		return DecodeYAML([]byte(source), p.File)
	default:
		return nil, fmt.Errorf("unsupported document format %q", p.Format)
	}
}

// DecodeYAML decodes a YAML document into a tree and checks its node kinds.
func DecodeYAML(data []byte, file string) (*Node, error) {
	var root Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode syntax tree %q: %w", file, err)
	}
	return finishDecode(&root, file)
}

// DecodeJSON decodes a JSON document into a tree and checks its node kinds.
// Unknown fields are rejected.
func DecodeJSON(data []byte, file string) (*Node, error) {
	var root Node
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode syntax tree %q: %w", file, err)
	}
	return finishDecode(&root, file)
}

// EncodeJSON serializes a tree as compact JSON.
func EncodeJSON(n *Node) ([]byte, error) {
	return json.Marshal(n)
}

func finishDecode(root *Node, file string) (*Node, error) {
	if root.Kind == "" {
		return nil, fmt.Errorf("syntax tree %q has no root kind", file)
	}
	var bad *Node
	Inspect(root, func(n *Node) bool {
		if bad != nil {
			return false
		}
		if !n.Kind.Valid() {
			bad = n
			return false
		}
		if file != "" && n.Location.File == "" && n.Location.Line > 0 {
			n.Location.File = file
		}
		return true
	})
	if bad != nil {
		return nil, fmt.Errorf("%s: unknown node kind %q", bad.Location, bad.Kind)
	}
	if root.Kind != KindFile {
		return &Node{Kind: KindFile, Stmts: []*Node{root}, Location: root.Location}, nil
	}
	return root, nil
}
