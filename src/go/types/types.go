package types

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section names as they appear in config files
const (
	SectionFind = "find"
	SectionGrep = "grep"
)

// Argument types an option may declare
const (
	TypeInt    = "int"
	TypeString = "str"
)

// Option represents a single configurable flag and the tokens it injects
type Option struct {
	Key           string `yaml:"-"`
	Arg           string `yaml:"arg,omitempty"` // flag name, defaults to Key
	Alias         string `yaml:"alias,omitempty"`
	Target        Target `yaml:"target"`
	Value         bool   `yaml:"value,omitempty"` // true: active unless --no-<key> is given
	Type          string `yaml:"type,omitempty"`
	AllowedValues []any  `yaml:"allowed-values,omitempty"`
	MutexGroup    string `yaml:"mutex-group,omitempty"`
	Disabled      bool   `yaml:"disabled,omitempty"`
	Help          string `yaml:"help,omitempty"`

	resolved any
	bound    bool
}

// IsTyped reports whether the option takes an argument
func (o *Option) IsTyped() bool {
	return o.Type != ""
}

// DefaultActive reports whether the option contributes unless explicitly disabled
func (o *Option) DefaultActive() bool {
	return o.Value && !o.IsTyped()
}

// FlagName returns the long flag spelling, without dashes
func (o *Option) FlagName() string {
	name := o.Key
	if o.Arg != "" {
		name = o.Arg
	}
	if o.DefaultActive() {
		return "no-" + name
	}
	return name
}

// Allows reports whether v is an accepted argument. Options without
// allowed-values accept anything.
func (o *Option) Allows(v any) bool {
	if len(o.AllowedValues) == 0 {
		return true
	}
	for _, a := range o.AllowedValues {
		if a == v {
			return true
		}
	}
	return false
}

// Resolve records the user's choice for this option. It may be called once.
func (o *Option) Resolve(v any) error {
	if o.bound {
		return fmt.Errorf("option %q already resolved", o.Key)
	}

	switch v.(type) {
	case nil, bool, int, string:
	default:
		return fmt.Errorf("option %q: unsupported resolution %v (%T)", o.Key, v, v)
	}

	o.resolved = v
	o.bound = true
	return nil
}

// Resolution returns the resolved value and whether Resolve has been called
func (o *Option) Resolution() (any, bool) {
	return o.resolved, o.bound
}

// Active reports whether the option's target is part of the assembled command
func (o *Option) Active() bool {
	if o.DefaultActive() {
		return o.resolved != false
	}

	switch v := o.resolved.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// Tokens projects the option onto the external command
func (o *Option) Tokens() []string {
	if !o.Active() {
		return nil
	}

	tokens := append([]string(nil), o.Target...)
	if _, isBool := o.resolved.(bool); isBool || o.resolved == nil {
		return tokens
	}

	v := fmt.Sprint(o.resolved)
	if last := len(tokens) - 1; last >= 0 && strings.HasSuffix(tokens[last], "=") {
		tokens[last] += v
		return tokens
	}
	return append(tokens, v)
}

// HasPrefix reports whether the target starts with the given tokens
func (o *Option) HasPrefix(prefix ...string) bool {
	if len(o.Target) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if o.Target[i] != p {
			return false
		}
	}
	return true
}

// IsExclusion reports whether the target is a negated find expression
func (o *Option) IsExclusion() bool {
	return o.HasPrefix("!")
}

// IsSelection reports whether the target selects files by name
func (o *Option) IsSelection() bool {
	return o.HasPrefix("-name") || o.HasPrefix("-iname")
}

// IsPathFilter reports whether the target filters on the whole path rather than the file name
func (o *Option) IsPathFilter() bool {
	t := o.Target
	if len(t) > 0 && t[0] == "!" {
		t = t[1:]
	}
	if len(t) == 0 {
		return false
	}

	switch t[0] {
	case "-path", "-ipath", "-wholename", "-iwholename":
		return true
	}
	return false
}

// Validate checks that the option is usable
func (o *Option) Validate() error {
	if len(o.Target) == 0 {
		return errors.New("target cannot be empty")
	}

	switch o.Type {
	case "", TypeInt, TypeString:
	default:
		return fmt.Errorf("invalid type %q (want %q or %q)", o.Type, TypeInt, TypeString)
	}

	if o.Value && o.IsTyped() {
		return errors.New("value: true is only valid for switches")
	}

	if len(o.AllowedValues) > 0 && !o.IsTyped() {
		return errors.New(`an explicit type should be specified along with "allowed-values"`)
	}
	for _, v := range o.AllowedValues {
		if !o.ofType(v) {
			return fmt.Errorf("invalid allowed value %v (%T) for type %q", v, v, o.Type)
		}
	}

	return nil
}

func (o *Option) ofType(v any) bool {
	switch v.(type) {
	case int:
		return o.Type == TypeInt
	case string:
		return o.Type == TypeString
	}
	return false
}

// Target holds the literal tokens of an option. In YAML it may be a single string.
type Target []string

func (t *Target) UnmarshalYAML(n *yaml.Node) error {
	var slice []string
	sliceErr := n.Decode(&slice)
	if sliceErr == nil {
		*t = slice
		return nil
	}

	var str string
	if err := n.Decode(&str); err != nil {
		return errors.Join(sliceErr, err)
	}

	*t = Target{str}
	return nil
}

// Options is a config section: options in document order
type Options []*Option

// Get returns the option with the given key, or nil
func (opts Options) Get(key string) *Option {
	for _, o := range opts {
		if o.Key == key {
			return o
		}
	}
	return nil
}

// Filter returns the options for which keep returns true, preserving order
func (opts Options) Filter(keep func(*Option) bool) Options {
	var out Options
	for _, o := range opts {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (opts *Options) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of options", n.Line)
	}

	out := make(Options, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		opt := &Option{}
		if err := n.Content[i+1].Decode(opt); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		opt.Key = key
		out = append(out, opt)
	}

	*opts = out
	return nil
}

func (opts Options) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, o := range opts {
		v := &yaml.Node{}
		if err := v.Encode(o); err != nil {
			return nil, fmt.Errorf("option %q: %w", o.Key, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: o.Key}, v)
	}
	return n, nil
}

// Config is the fully resolved set of options
type Config struct {
	Find Options `yaml:"find"`
	Grep Options `yaml:"grep"`
}

// All returns every option, find section first
func (c *Config) All() Options {
	all := make(Options, 0, len(c.Find)+len(c.Grep))
	all = append(all, c.Find...)
	return append(all, c.Grep...)
}

// StripDisabled drops options marked disabled from every section
func (c *Config) StripDisabled() {
	enabled := func(o *Option) bool { return !o.Disabled }
	c.Find = c.Find.Filter(enabled)
	c.Grep = c.Grep.Filter(enabled)
}

// Validate checks every option and the uniqueness of keys and aliases
func (c *Config) Validate() error {
	sections := make(map[string]string)
	aliases := make(map[string]string)

	for _, s := range []struct {
		name string
		opts Options
	}{
		{SectionFind, c.Find},
		{SectionGrep, c.Grep},
	} {
		for _, o := range s.opts {
			if err := o.Validate(); err != nil {
				return fmt.Errorf("option %q: %w", o.Key, err)
			}

			switch prev, ok := sections[o.Key]; {
			case ok && prev == s.name:
				return fmt.Errorf("option %q is defined twice in %s", o.Key, s.name)
			case ok:
				return fmt.Errorf("option %q is defined in both %s and %s", o.Key, prev, s.name)
			}
			sections[o.Key] = s.name

			if o.Alias == "" {
				continue
			}
			if other, ok := aliases[o.Alias]; ok {
				return fmt.Errorf("alias %q used by both %q and %q", o.Alias, other, o.Key)
			}
			aliases[o.Alias] = o.Key
		}
	}

	return nil
}
