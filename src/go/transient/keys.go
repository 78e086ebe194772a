package transient

import (
	"fmt"
	"unicode"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// keyPool lists the menu keys handed out to options without an alias, in
// order of preference. q is reserved by transient for quitting.
var keyPool = func() []string {
	var keys []string
	for r := 'a'; r <= 'z'; r++ {
		if r != 'q' {
			keys = append(keys, string(r))
		}
	}
	for r := 'A'; r <= 'Z'; r++ {
		keys = append(keys, string(r))
	}
	for _, k := range keys {
		keys = append(keys, "M-"+k)
	}
	for r := '0'; r <= '9'; r++ {
		keys = append(keys, string(r))
	}
	for r := '0'; r <= '9'; r++ {
		keys = append(keys, "M-"+string(r))
	}
	return keys
}()

var inPool = func() map[string]bool {
	m := make(map[string]bool, len(keyPool))
	for _, k := range keyPool {
		m[k] = true
	}
	return m
}()

// resolveKeys assigns every option a unique key. Aliases are used as they are;
// the others get the first free letter of their name (either case) or, failing
// that, the first free key of the pool.
func resolveKeys(opts types.Options) (map[*types.Option]string, error) {
	keys := make(map[*types.Option]string, len(opts))
	used := make(map[string]*types.Option)

	for _, opt := range opts {
		if opt.Alias == "" {
			continue
		}
		if other := used[opt.Alias]; other != nil {
			return nil, fmt.Errorf("key %q used by both %q and %q", opt.Alias, other.Key, opt.Key)
		}
		used[opt.Alias] = opt
		keys[opt] = opt.Alias
	}

	take := func(opt *types.Option, k string) bool {
		if !inPool[k] || used[k] != nil {
			return false
		}
		used[k] = opt
		keys[opt] = k
		return true
	}

	for _, opt := range opts {
		if opt.Alias != "" {
			continue
		}
		if fromName(opt, take) {
			continue
		}

		found := false
		for _, k := range keyPool {
			if take(opt, k) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("could not find a key for %q", opt.Key)
		}
	}

	return keys, nil
}

func fromName(opt *types.Option, take func(*types.Option, string) bool) bool {
	for _, r := range opt.Key {
		if take(opt, string(r)) || take(opt, string(swapCase(r))) {
			return true
		}
	}
	return false
}

func swapCase(r rune) rune {
	if unicode.IsUpper(r) {
		return unicode.ToLower(r)
	}
	return unicode.ToUpper(r)
}
