// Package flags exposes resolved options as command-line flags and copies the
// parsed values back onto the options.
//
// Registration happens before parsing (Bind); the values are attached afterwards
// in one explicit pass (Binder.Resolve) through a flag-name to option mapping.
package flags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// Binder remembers which flag was registered for which option
type Binder struct {
	bindings []binding
}

type binding struct {
	flag string
	opt  *types.Option
}

// Bind registers one flag per option of cfg on cmd. Options sharing a mutex
// group are marked mutually exclusive, so cobra rejects the invocation before
// RunE when more than one of them is given.
func Bind(cmd *cobra.Command, cfg *types.Config) (*Binder, error) {
	b := &Binder{}
	fs := cmd.Flags()

	groups := make(map[string][]string)
	var groupOrder []string

	sections := []struct {
		name string
		opts types.Options
	}{
		{types.SectionFind, cfg.Find},
		{types.SectionGrep, cfg.Grep},
	}

	for _, section := range sections {
		for _, opt := range section.opts {
			name := opt.FlagName()
			if err := register(fs, opt, name, usage(section.name, opt)); err != nil {
				return nil, err
			}
			b.bindings = append(b.bindings, binding{flag: name, opt: opt})

			if g := opt.MutexGroup; g != "" {
				if _, seen := groups[g]; !seen {
					groupOrder = append(groupOrder, g)
				}
				groups[g] = append(groups[g], name)
			}
		}
	}

	for _, g := range groupOrder {
		if len(groups[g]) > 1 {
			cmd.MarkFlagsMutuallyExclusive(groups[g]...)
		}
	}

	return b, nil
}

func register(fs *pflag.FlagSet, opt *types.Option, name, usage string) error {
	if fs.Lookup(name) != nil {
		return fmt.Errorf("option %q: flag --%s is already defined", opt.Key, name)
	}

	// multi-character aliases only exist in the menu export
	var short string
	if len(opt.Alias) == 1 {
		if other := fs.ShorthandLookup(opt.Alias); other != nil {
			return fmt.Errorf("option %q: -%s is already used by --%s", opt.Key, opt.Alias, other.Name)
		}
		short = opt.Alias
	}

	switch opt.Type {
	case types.TypeInt:
		fs.IntP(name, short, 0, usage)
	case types.TypeString:
		fs.StringP(name, short, "", usage)
	default:
		fs.BoolP(name, short, false, usage)
	}

	if len(opt.AllowedValues) > 0 {
		f := fs.Lookup(name)
		f.Value = &restricted{Value: f.Value, opt: opt}
	}

	return nil
}

// restricted rejects arguments outside the option's allowed values while
// parsing, so they surface as ordinary flag errors
type restricted struct {
	pflag.Value
	opt *types.Option
}

func (r *restricted) Set(raw string) error {
	if err := r.Value.Set(raw); err != nil {
		return err
	}

	var v any = r.Value.String()
	if r.opt.Type == types.TypeInt {
		n, err := strconv.Atoi(r.Value.String())
		if err != nil {
			return err
		}
		v = n
	}

	if !r.opt.Allows(v) {
		return fmt.Errorf("must be one of %s", allowedList(r.opt))
	}
	return nil
}

func allowedList(opt *types.Option) string {
	vals := make([]string, len(opt.AllowedValues))
	for i, v := range opt.AllowedValues {
		vals[i] = fmt.Sprint(v)
	}
	return strings.Join(vals, ", ")
}

func usage(section string, opt *types.Option) string {
	text := opt.Help
	if text == "" {
		target := strings.Join(opt.Target, " ")
		if opt.DefaultActive() {
			text = fmt.Sprintf("Don't add '%s' to %s", target, section)
		} else {
			text = fmt.Sprintf("Adds '%s' to %s", target, section)
		}
	}

	if len(opt.AllowedValues) > 0 {
		text += " (one of " + allowedList(opt) + ")"
	}
	return text
}

// Resolve copies the parsed flag values onto the options. Options whose flag
// was not given resolve to true when they are active by default, and to nil
// otherwise.
func (b *Binder) Resolve(fs *pflag.FlagSet) error {
	for _, bnd := range b.bindings {
		v, err := value(fs, bnd)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", bnd.flag, err)
		}
		if err := bnd.opt.Resolve(v); err != nil {
			return err
		}
	}
	return nil
}

func value(fs *pflag.FlagSet, bnd binding) (any, error) {
	f := fs.Lookup(bnd.flag)
	if f == nil {
		return nil, errors.New("not registered")
	}

	switch bnd.opt.Type {
	case types.TypeInt:
		if !f.Changed {
			return nil, nil
		}
		return fs.GetInt(bnd.flag)
	case types.TypeString:
		if !f.Changed {
			return nil, nil
		}
		return fs.GetString(bnd.flag)
	}

	given := false
	if f.Changed {
		var err error
		if given, err = fs.GetBool(bnd.flag); err != nil {
			return nil, err
		}
	}

	if bnd.opt.DefaultActive() {
		return !given, nil
	}
	if !f.Changed {
		return nil, nil
	}
	return given, nil
}

// Options returns the bound options in registration order
func (b *Binder) Options() types.Options {
	out := make(types.Options, 0, len(b.bindings))
	for _, bnd := range b.bindings {
		out = append(out, bnd.opt)
	}
	return out
}
