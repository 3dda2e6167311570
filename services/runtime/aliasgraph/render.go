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
	"strconv"
	"strings"
)

// String renders the graph in a compact literal form, for example
// {"a": [1, 2], "b": [3, 4]}. A container that contains itself renders the
// re-entry as <cycle #id>.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var sb strings.Builder
	writeNode(&sb, n, make(map[*Node]bool))
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node, onPath map[*Node]bool) {
	switch n.kind {
	case KindScalar:
		writeScalar(sb, n.value)
		return
	case KindSequence, KindMapping:
	default:
		panic(unknownKind(n.kind))
	}

	if onPath[n] {
		sb.WriteString("<cycle #")
		sb.WriteString(strconv.FormatUint(n.id, 10))
		sb.WriteString(">")
		return
	}
	onPath[n] = true
	defer delete(onPath, n)

	if n.kind == KindSequence {
		sb.WriteByte('[')
		for i, child := range n.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeNode(sb, child, onPath)
		}
		sb.WriteByte(']')
		return
	}

	sb.WriteByte('{')
	for i, k := range n.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteString(": ")
		writeNode(sb, n.entries[k], onPath)
	}
	sb.WriteByte('}')
}

func writeScalar(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(x))
	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case string:
		sb.WriteString(strconv.Quote(x))
	}
}
