// Package transient renders the resolved options as a group description for the
// Emacs transient package, so an editor front-end can build its menu from the
// same configuration the command line uses.
package transient

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// Header precedes the expression in the output
const Header = "\n" +
	";; This expression is intended to be returned by `transient-setup-children'\n" +
	";; and a transient group will be built from it.\n" +
	"\n"

type section struct {
	name string
	opts types.Options
}

// Write renders cfg as a list of transient groups. Options without an alias are
// assigned a free key first.
func Write(w io.Writer, cfg *types.Config) error {
	keys, err := resolveKeys(cfg.All())
	if err != nil {
		return err
	}

	sections := []section{
		{"Exclude paths", prefixed(cfg.Find, "!", "-path")},
		{"Exclude files", prefixed(cfg.Find, "!", "-name")},
		{"Select files", prefixed(cfg.Find, "-name")},
		{"Grep args", cfg.Grep},
	}

	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("(")
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n ")
		}
		writeSection(&sb, s, keys)
	}
	sb.WriteString(")\n")

	_, err = io.WriteString(w, sb.String())
	return err
}

func prefixed(opts types.Options, prefix ...string) types.Options {
	return opts.Filter(func(o *types.Option) bool {
		return o.HasPrefix(prefix...)
	})
}

func writeSection(sb *strings.Builder, s section, keys map[*types.Option]string) {
	lines := make([]string, len(s.opts))
	for i, opt := range s.opts {
		lines[i] = renderOption(opt, keys[opt])
	}
	fmt.Fprintf(sb, "[\"%s\"\n%s]", s.name, strings.Join(lines, "\n"))
}

func renderOption(opt *types.Option, key string) string {
	flag := opt.FlagName()

	args := []string{quote("--" + flag)}
	class := "switch"
	if opt.IsTyped() {
		args[0] = quote("--" + flag + "=")
		class = "option"
	}
	if opt.Alias != "" {
		args = append([]string{quote("-" + opt.Alias)}, args...)
	}

	var mutex string
	if g := opt.MutexGroup; g != "" {
		class = "findgrep--" + class + "-mutex"
		mutex = " :mutex-group " + g
	} else {
		class = "transient-" + class
	}

	return fmt.Sprintf("  (%s %s (%s) :class %s%s)",
		quote(key), quote(label(flag)), strings.Join(args, " "), class, mutex)
}

// label turns a flag name into a menu description: no-exclude-git reads
// "Don't exclude git"
func label(flag string) string {
	words := strings.Split(flag, "-")
	if words[0] == "no" {
		words[0] = "Don't"
	} else {
		words[0] = cases.Title(language.Und).String(words[0])
	}
	return strings.Join(words, " ")
}

var lispEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote renders s as an elisp string literal
func quote(s string) string {
	return `"` + lispEscaper.Replace(s) + `"`
}
