package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// Filter decides which changes under root concern the search, using the same
// active find options the assembled command was built from
type Filter struct {
	root     string
	paths    []pattern
	excludes []pattern
	includes []pattern
}

type pattern struct {
	glob string
	fold bool
}

func (p pattern) match(s string) bool {
	if p.fold {
		s = strings.ToLower(s)
	}
	ok, _ := doublestar.Match(p.glob, s)
	return ok
}

// NewFilter collects the name and path tests of the active options in find.
// Inactive options are ignored, so resolve the options first.
func NewFilter(root string, find types.Options) *Filter {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	f := &Filter{root: root}

	for _, opt := range find {
		if !opt.Active() {
			continue
		}

		var included []pattern
		for _, t := range parseTests(opt.Tokens()) {
			switch {
			case t.path && t.negate:
				f.paths = append(f.paths, t.pattern)
			case t.path:
				// positive path tests narrow the tree too far to mirror here
			case t.negate:
				f.excludes = append(f.excludes, t.pattern)
			default:
				included = append(included, t.pattern)
			}
		}
		f.includes = append(f.includes, included...)
	}

	return f
}

// Compressed returns a copy of f for a gzip search: selected names carry the
// .gz suffix and, without any selection, only .gz files match
func (f *Filter) Compressed(suffix string) *Filter {
	c := *f
	c.includes = nil
	for _, p := range f.includes {
		p.glob += suffix
		c.includes = append(c.includes, p)
	}
	if len(c.includes) == 0 {
		c.includes = []pattern{{glob: "*" + suffix}}
	}
	return &c
}

type test struct {
	negate  bool
	path    bool
	pattern pattern
}

// parseTests extracts the -name and -path style tests of a target, e.g.
// "! -name a ! -name b" yields two negated name tests
func parseTests(tokens []string) (tests []test) {
	negate := false
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "!" || tok == "-not" {
			negate = !negate
			continue
		}

		kind, ok := testKinds[tok]
		if !ok || i+1 >= len(tokens) {
			negate = false
			continue
		}
		i++

		glob := tokens[i]
		if kind.path {
			glob = pathGlob(glob)
		}
		if kind.fold {
			glob = strings.ToLower(glob)
		}
		tests = append(tests, test{
			negate:  negate,
			path:    kind.path,
			pattern: pattern{glob: glob, fold: kind.fold},
		})
		negate = false
	}
	return tests
}

var testKinds = map[string]struct{ path, fold bool }{
	"-name":       {},
	"-iname":      {fold: true},
	"-path":       {path: true},
	"-ipath":      {path: true, fold: true},
	"-wholename":  {path: true},
	"-iwholename": {path: true, fold: true},
}

// pathGlob rewrites a find -path pattern for matching root-relative slash
// paths. A lone * in find crosses directory boundaries, so it becomes **.
func pathGlob(glob string) string {
	glob = strings.TrimPrefix(glob, "./")
	parts := strings.Split(glob, "/")
	for i, p := range parts {
		if p == "*" {
			parts[i] = "**"
		}
	}
	return strings.Join(parts, "/")
}

func (f *Filter) rel(path string) (string, bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// SkipDir reports whether find would prune everything below dir
func (f *Filter) SkipDir(dir string) bool {
	rel, ok := f.rel(dir)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	return f.excludedPath(rel + "/_")
}

// Match reports whether a change to the file at path could alter the search
// output
func (f *Filter) Match(path string) bool {
	rel, ok := f.rel(path)
	if !ok || rel == "." {
		return false
	}
	if f.excludedPath(rel) {
		return false
	}

	base := filepath.Base(path)
	for _, p := range f.excludes {
		if p.match(base) {
			return false
		}
	}

	if len(f.includes) == 0 {
		return true
	}
	for _, p := range f.includes {
		if p.match(base) {
			return true
		}
	}
	return false
}

func (f *Filter) excludedPath(rel string) bool {
	for _, p := range f.paths {
		if p.match(rel) {
			return true
		}
	}
	return false
}
