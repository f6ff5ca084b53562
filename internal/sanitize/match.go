package sanitize

import (
	"sort"
	"strings"
)

// FlattenMode controls how KeysToQueryDict resolves overlapping dotted
// paths, e.g. "args" and "args.x" both present in the same key set.
type FlattenMode int

const (
	// Deepest keeps every path regardless of prefix overlap, nesting as
	// deep as each key specifies.
	Deepest FlattenMode = iota
	// Topmost skips a key if a strictly shorter prefix of it is already
	// present as a leaf, since that shallower key already matches
	// anything underneath it.
	Topmost
)

// KeysToQueryDict turns a set of dotted paths ("args.x", "metadata.y.z")
// into the nested map a caller uses as a required_fields pattern for
// ArgMatch, with nil at every leaf (nil is ArgMatch's wildcard: match any
// value/subtree).
func KeysToQueryDict(keys []string, mode FlattenMode) map[string]interface{} {
	sorted := append([]string{}, keys...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) < len(sorted[j]) })

	result := map[string]interface{}{}
	seenPrefixLeaf := map[string]bool{}

	for _, key := range sorted {
		parts := strings.Split(key, ".")
		if mode == Topmost {
			skip := false
			for i := 1; i < len(parts); i++ {
				prefix := strings.Join(parts[:i], ".")
				if seenPrefixLeaf[prefix] {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}
		insertPath(result, parts)
		seenPrefixLeaf[key] = true
	}
	return result
}

func insertPath(m map[string]interface{}, parts []string) {
	if len(parts) == 1 {
		m[parts[0]] = nil
		return
	}
	head := parts[0]
	child, ok := m[head].(map[string]interface{})
	if !ok || m[head] == nil {
		child = map[string]interface{}{}
		m[head] = child
	}
	insertPath(child, parts[1:])
}

// ArgMatch recursively checks that data's key set at every level matches
// required's key set exactly ("no more, no less"): every key required
// names must be present in data, and data must not carry extra keys at
// that level. A nil value in required is a wildcard: it matches any value
// or subtree present in data for that key, without recursing further.
func ArgMatch(data, required interface{}) bool {
	if required == nil {
		return true
	}
	reqMap, reqIsMap := required.(map[string]interface{})
	if !reqIsMap {
		return true // a non-nil, non-map required leaf matches by presence alone
	}
	dataMap, dataIsMap := data.(map[string]interface{})
	if !dataIsMap {
		return false
	}
	if len(dataMap) != len(reqMap) {
		return false
	}
	for k, reqVal := range reqMap {
		dataVal, ok := dataMap[k]
		if !ok {
			return false
		}
		if !ArgMatch(dataVal, reqVal) {
			return false
		}
	}
	return true
}
