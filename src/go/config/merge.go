package config

import "gopkg.in/yaml.v3"

// mergeNode merges src into dst in place. Mappings merge key by key, keeping
// the position of keys dst already has and appending new ones; any other value
// replaces dst wholesale. Null values in src leave dst untouched.
func mergeNode(dst, src *yaml.Node) {
	src = resolveAlias(src)
	if isNull(src) {
		return
	}

	if resolveAlias(dst).Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		*dst = *cloneNode(src)
		return
	}

	// an alias in dst is materialised before being modified
	if dst.Kind == yaml.AliasNode {
		*dst = *cloneNode(resolveAlias(dst))
	}

	for i := 0; i+1 < len(src.Content); i += 2 {
		key, val := src.Content[i], src.Content[i+1]

		if j := indexOf(dst, key.Value); j >= 0 {
			mergeNode(dst.Content[j+1], val)
			continue
		}

		if isNull(resolveAlias(val)) {
			continue
		}
		dst.Content = append(dst.Content, cloneNode(key), cloneNode(resolveAlias(val)))
	}
}

// indexOf returns the position of key in a mapping node's content, or -1
func indexOf(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}

	out := *n
	if n.Content != nil {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = cloneNode(c)
		}
	}
	return &out
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}
