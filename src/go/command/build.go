// Package command turns a resolved configuration into the find/grep argv and
// runs it.
package command

import (
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// Executables and fixed tokens of the assembled command
const (
	FindExecutable  = "find"
	GrepExecutable  = "grep"
	ZgrepExecutable = "zgrep"
	StartPath       = "."
	GrepColor       = "--color=always"
	GzipSuffix      = ".gz"
)

type buildOptions struct {
	gzip bool
}

// BuildOption adjusts how the command is assembled
type BuildOption func(*buildOptions)

// WithGzip searches gzip-compressed files: zgrep replaces grep, selected names
// get the .gz suffix and, without any selection, only *.gz files are searched.
func WithGzip(enabled bool) BuildOption {
	return func(o *buildOptions) {
		o.gzip = enabled
	}
}

// Build assembles the find invocation for the given search terms. The result
// is a literal argv: every term is its own element and nothing is shell-quoted.
func Build(cfg *types.Config, terms []string, opts ...BuildOption) []string {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	args := []string{FindExecutable, StartPath}

	var paths, files types.Options
	for _, opt := range cfg.Find {
		if opt.IsPathFilter() {
			paths = append(paths, opt)
		} else {
			files = append(files, opt)
		}
	}

	for _, opt := range paths {
		args = append(args, opt.Tokens()...)
	}

	args = append(args, "-type", "f")
	args = append(args, buildFileFilters(files, bo.gzip)...)

	grep := GrepExecutable
	if bo.gzip {
		grep = ZgrepExecutable
	}
	args = append(args, "-exec", grep, GrepColor)
	for _, opt := range cfg.Grep {
		args = append(args, opt.Tokens()...)
	}
	for _, term := range terms {
		args = append(args, "-e", term)
	}

	return append(args, "{}", "+")
}

// buildFileFilters emits name filters in order. Several active selections
// (positive -name/-iname tests) are OR-ed inside one parenthesised group placed
// where the first of them appears, since find would otherwise AND them. Any
// other predicate keeps its place and still ANDs with the group.
func buildFileFilters(opts types.Options, gzip bool) (args []string) {
	var selected [][]string
	for _, opt := range opts {
		if opt.Active() && opt.IsSelection() {
			selected = append(selected, selectionTokens(opt, gzip))
		}
	}

	grouped := false
	for _, opt := range opts {
		if !opt.Active() {
			continue
		}
		if !opt.IsSelection() {
			args = append(args, opt.Tokens()...)
			continue
		}
		if len(selected) < 2 {
			args = append(args, selectionTokens(opt, gzip)...)
			continue
		}
		if grouped {
			continue
		}

		args = append(args, "(")
		for i, tokens := range selected {
			if i > 0 {
				args = append(args, "-o")
			}
			args = append(args, tokens...)
		}
		args = append(args, ")")
		grouped = true
	}

	if gzip && len(selected) == 0 {
		args = append(args, "-name", "*"+GzipSuffix)
	}

	return args
}

// selectionTokens projects a selection, appending the gzip suffix to every
// name pattern when compressed files are searched
func selectionTokens(opt *types.Option, gzip bool) []string {
	tokens := opt.Tokens()
	if !gzip {
		return tokens
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1] == "-name" || tokens[i-1] == "-iname" {
			tokens[i] += GzipSuffix
		}
	}
	return tokens
}
