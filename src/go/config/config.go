package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/types"
)

// FileName is the name of the per-directory override file
const FileName = ".findgrep.yml"

//go:embed default.yml
var defaultDocument []byte

// defaultTree is parsed once and never mutated; callers get deep copies.
var defaultTree = sync.OnceValues(func() (*yaml.Node, error) {
	root, err := parseDocument(defaultDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default config: %w", err)
	}
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, errors.New("default config is not a mapping")
	}
	return root, nil
})

// DefaultConfig returns the built-in configuration with no overrides applied
func DefaultConfig() (*types.Config, error) {
	tree, err := defaultTree()
	if err != nil {
		return nil, err
	}
	return decode(cloneNode(tree))
}

// Resolve builds the configuration for dir: the defaults merged with every
// override file between the filesystem root and dir, nearest file last.
func Resolve(dir string) (*types.Config, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	tree, err := defaultTree()
	if err != nil {
		return nil, err
	}
	tree = cloneNode(tree)

	for _, path := range files {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}

		log.Debug().Str("file", path).Msg("merging override file")
		mergeNode(tree, layer)
	}

	cfg, err := decode(tree)
	if err != nil {
		return nil, err
	}

	cfg.StripDisabled()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Discover returns the override files that apply to dir, furthest ancestor first
func Discover(dir string) ([]string, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %q: %w", dir, err)
	}

	var found []string
	for {
		candidate := filepath.Join(path, FileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			found = append(found, candidate)
		}

		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}

	return found, nil
}

// loadLayer reads one override file. A nil node means the file is to be skipped.
func loadLayer(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	root, err := parseDocument(data)
	if err != nil {
		log.Info().Str("file", path).Err(err).Msg("ignoring unparsable override file")
		return nil, nil
	}
	if root == nil {
		log.Info().Str("file", path).Msg("ignoring empty override file")
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		log.Info().Str("file", path).Msg("ignoring override file: top level is not a mapping")
		return nil, nil
	}

	return root, nil
}

// parseDocument returns the top-level node of a YAML document, or nil when it is empty
func parseDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := resolveAlias(doc.Content[0])
	if isNull(root) {
		return nil, nil
	}
	return root, nil
}

func decode(tree *yaml.Node) (*types.Config, error) {
	cfg := &types.Config{}
	if err := tree.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Write encodes the configuration as YAML, preserving option order
func Write(w io.Writer, cfg *types.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return enc.Close()
}
