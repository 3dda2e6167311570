// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aliasgraph

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Decoding
// =============================================================================

// FromYAML converts a YAML document into a graph.
//
// Description:
//
//	Anchors and aliases carry over as aliasing: every *name reference
//	becomes a handle to the node built for &name, so
//
//	    base: &shared [1, 2]
//	    copy: *shared
//
//	yields a mapping whose two values are IdentityEqual. Scalars are typed
//	by their resolved tag (null, bool, int, float); everything else is a
//	string. Mapping keys must be scalars.
//
// Inputs:
//   - data: A single YAML document.
//
// Outputs:
//   - *Node: Root of the graph.
//   - error: ErrInvalidYAML (wrapped) on parse or conversion failure.
func FromYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidYAML)
	}
	d := &yamlDecoder{memo: make(map[*yaml.Node]*Node)}
	return d.convert(doc.Content[0])
}

type yamlDecoder struct {
	memo map[*yaml.Node]*Node
}

func (d *yamlDecoder) convert(y *yaml.Node) (*Node, error) {
	if n, ok := d.memo[y]; ok {
		return n, nil
	}

	switch y.Kind {
	case yaml.AliasNode:
		if y.Alias == nil {
			return nil, fmt.Errorf("%w: dangling alias *%s at line %d", ErrInvalidYAML, y.Value, y.Line)
		}
		return d.convert(y.Alias)

	case yaml.ScalarNode:
		n, err := decodeScalar(y)
		if err != nil {
			return nil, err
		}
		d.memo[y] = n
		return n, nil

	case yaml.SequenceNode:
		seq := NewSequence()
		d.memo[y] = seq
		for _, c := range y.Content {
			child, err := d.convert(c)
			if err != nil {
				return nil, err
			}
			seq.items = append(seq.items, child)
		}
		return seq, nil

	case yaml.MappingNode:
		m := NewMapping()
		d.memo[y] = m
		for i := 0; i+1 < len(y.Content); i += 2 {
			key, err := mappingKey(y.Content[i])
			if err != nil {
				return nil, err
			}
			child, err := d.convert(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.put(key, child)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: unsupported node kind %d at line %d", ErrInvalidYAML, y.Kind, y.Line)
	}
}

func mappingKey(k *yaml.Node) (string, error) {
	if k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: non-scalar mapping key at line %d", ErrInvalidYAML, k.Line)
	}
	return k.Value, nil
}

func decodeScalar(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidYAML, y.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := y.Decode(&i); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidYAML, y.Line, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidYAML, y.Line, err)
		}
		return Float(f), nil
	default:
		return String(y.Value), nil
	}
}

// =============================================================================
// Encoding
// =============================================================================

// ToYAML renders a graph as a YAML document.
//
// Description:
//
//	A node reachable more than once (shared child or cycle) is written once
//	with an anchor &n<ID>, and every later occurrence becomes an alias to
//	it. Reading the output back with FromYAML restores the same aliasing.
func ToYAML(root *Node) ([]byte, error) {
	if root == nil {
		return nil, ErrNilNode
	}

	e := &yamlEncoder{
		refs:  countRefs(root),
		built: make(map[*Node]*yaml.Node),
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{e.build(root)}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// countRefs counts how many slots (plus the root) reference each node.
func countRefs(root *Node) map[*Node]int {
	refs := map[*Node]int{root: 1}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range n.Children() {
			refs[child]++
			if refs[child] == 1 {
				stack = append(stack, child)
			}
		}
	}
	return refs
}

type yamlEncoder struct {
	refs  map[*Node]int
	built map[*Node]*yaml.Node
}

func anchorName(n *Node) string {
	return "n" + strconv.FormatUint(n.id, 10)
}

func (e *yamlEncoder) build(n *Node) *yaml.Node {
	if target, ok := e.built[n]; ok {
		return &yaml.Node{Kind: yaml.AliasNode, Value: target.Anchor, Alias: target}
	}

	var y *yaml.Node
	switch n.kind {
	case KindScalar:
		y = encodeScalar(n.value)
	case KindSequence:
		y = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	case KindMapping:
		y = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	default:
		panic(unknownKind(n.kind))
	}
	if e.refs[n] > 1 {
		y.Anchor = anchorName(n)
	}
	e.built[n] = y

	switch n.kind {
	case KindSequence:
		for _, child := range n.items {
			y.Content = append(y.Content, e.build(child))
		}
	case KindMapping:
		for _, k := range n.keys {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			y.Content = append(y.Content, key, e.build(n.entries[k]))
		}
	}
	return y
}

func encodeScalar(v any) *yaml.Node {
	y := &yaml.Node{Kind: yaml.ScalarNode}
	switch x := v.(type) {
	case nil:
		y.Tag, y.Value = "!!null", "null"
	case bool:
		y.Tag, y.Value = "!!bool", strconv.FormatBool(x)
	case int64:
		y.Tag, y.Value = "!!int", strconv.FormatInt(x, 10)
	case float64:
		y.Tag, y.Value = "!!float", formatYAMLFloat(x)
	case string:
		y.Tag, y.Value = "!!str", x
	}
	return y
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
