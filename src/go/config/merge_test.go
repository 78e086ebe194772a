package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mustParse(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	n, err := parseDocument([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func render(t *testing.T, n *yaml.Node) string {
	t.Helper()
	out, err := yaml.Marshal(n)
	require.NoError(t, err)
	return string(out)
}

func TestMergeNode(t *testing.T) {
	tests := []struct {
		name string
		dst  string
		src  string
		want string
	}{
		{
			name: "leaf replaced",
			dst:  "a: {x: 1, y: 2}\n",
			src:  "a: {y: 3}\n",
			want: "a: {x: 1, y: 3}\n",
		},
		{
			name: "new keys appended",
			dst:  "a: 1\nb: 2\n",
			src:  "c: 3\na: 4\n",
			want: "a: 4\nb: 2\nc: 3\n",
		},
		{
			name: "sequence replaced wholesale",
			dst:  "t: [a, b, c]\n",
			src:  "t: [d]\n",
			want: "t: [d]\n",
		},
		{
			name: "scalar replaces mapping",
			dst:  "a: {x: 1}\n",
			src:  "a: plain\n",
			want: "a: plain\n",
		},
		{
			name: "null leaves value",
			dst:  "a: {x: 1}\nb: 2\n",
			src:  "a:\nb: ~\nc: null\n",
			want: "a: {x: 1}\nb: 2\n",
		},
		{
			name: "nested mappings",
			dst:  "find: {g: {alias: G, value: true}}\n",
			src:  "find: {g: {disabled: true}, h: {alias: H}}\n",
			want: "find: {g: {alias: G, value: true, disabled: true}, h: {alias: H}}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := mustParse(t, tt.dst)
			mergeNode(dst, mustParse(t, tt.src))
			assert.Equal(t, render(t, mustParse(t, tt.want)), render(t, dst))
		})
	}
}

func TestMergeNodeIdempotent(t *testing.T) {
	layers := []string{
		"find:\n  exclude-git:\n    disabled: true\n",
		"grep:\n  before:\n    alias: b\n  extra:\n    target: [-x, -y]\n",
		"find:\n  only-go:\n    target: -name\n",
		"unrelated: [1, 2]\n",
	}

	for _, layer := range layers {
		base, err := defaultTree()
		require.NoError(t, err)

		once := cloneNode(base)
		mergeNode(once, mustParse(t, layer))

		twice := cloneNode(base)
		mergeNode(twice, mustParse(t, layer))
		mergeNode(twice, mustParse(t, layer))

		assert.Equal(t, render(t, once), render(t, twice), layer)
	}
}

func TestMergeNodeDoesNotAliasSource(t *testing.T) {
	dst := mustParse(t, "a: 1\n")
	src := mustParse(t, "b: {x: 1}\n")
	mergeNode(dst, src)

	src.Content[1].Content[1].Value = "changed"
	assert.Equal(t, render(t, mustParse(t, "a: 1\nb: {x: 1}\n")), render(t, dst))
}

func TestMergeNodeResolvesAliases(t *testing.T) {
	dst := mustParse(t, "grep: {n: {target: -n}}\n")
	src := mustParse(t, "common: &c {alias: N}\ngrep:\n  n: *c\n")
	mergeNode(dst, src)

	var out struct {
		Grep map[string]map[string]string `yaml:"grep"`
	}
	require.NoError(t, dst.Decode(&out))
	assert.Equal(t, "N", out.Grep["n"]["alias"])
	assert.Equal(t, "-n", out.Grep["n"]["target"])
}
