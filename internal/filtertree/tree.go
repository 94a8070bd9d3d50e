// Package filtertree resolves values in the hierarchical filter trees used by
// the fleet list views.
//
// A filter tree is a forest of Node values. The first level names the filter
// key ("type", "container", "status"); deeper levels hold the selectable
// values. A selection is the flat tuple form [key, ...path] consumed by
// cascading filter widgets.
package filtertree

import (
	"fmt"
	"sort"
	"strconv"
)

// Node is a single entry of a filter tree.
type Node struct {
	Value    any    `json:"value"`
	Label    string `json:"label,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// FindValuePath returns the path of node values from a root to the first node
// whose value equals target, searching depth-first in document order.
//
// Numeric values in the returned path are rendered as strings; booleans and
// strings are returned unchanged. FindValuePath returns nil when the tree is
// empty or no node matches.
func FindValuePath(tree []Node, target any) []any {
	for i := range tree {
		if path := findFrom(&tree[i], target, nil); path != nil {
			return path
		}
	}
	return nil
}

func findFrom(n *Node, target any, prefix []any) []any {
	path := append(prefix[:len(prefix):len(prefix)], pathValue(n.Value))
	if equalValues(n.Value, target) {
		return path
	}
	for i := range n.Children {
		if found := findFrom(&n.Children[i], target, path); found != nil {
			return found
		}
	}
	return nil
}

// BuildSelection converts the active filter values into selection tuples.
//
// For each key (in sorted order) and each of its values, the value is looked
// up below the top-level node whose value equals the key, or in the whole
// tree when there is no such node. A found value yields [key, ...path]; a
// value with no path yields [key, value].
func BuildSelection(tree []Node, active map[string][]any) [][]any {
	keys := make([]string, 0, len(active))
	for k := range active {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	selection := make([][]any, 0, len(active))
	for _, key := range keys {
		scope := subtree(tree, key)
		for _, v := range active[key] {
			tuple := []any{key}
			if path := FindValuePath(scope, v); path != nil {
				tuple = append(tuple, path...)
			} else {
				tuple = append(tuple, v)
			}
			selection = append(selection, tuple)
		}
	}
	return selection
}

// ResolveValues is the inverse of BuildSelection: it groups the leaf value of
// each tuple under the tuple's key. Tuples shorter than two elements or with a
// non-string key are skipped.
func ResolveValues(selection [][]any) map[string][]any {
	values := make(map[string][]any)
	for _, tuple := range selection {
		if len(tuple) < 2 {
			continue
		}
		key, ok := tuple[0].(string)
		if !ok || key == "" {
			continue
		}
		values[key] = append(values[key], tuple[len(tuple)-1])
	}
	return values
}

func subtree(tree []Node, key string) []Node {
	for i := range tree {
		if s, ok := tree[i].Value.(string); ok && s == key {
			return tree[i].Children
		}
	}
	return tree
}

// pathValue renders a node value the way it appears in a path.
func pathValue(v any) any {
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

// equalValues compares node values loosely: numbers compare by value
// regardless of their Go type, everything else by formatted equality within
// the same kind.
func equalValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	if aNum != bNum {
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return false
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
