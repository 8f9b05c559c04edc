package recipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// scalar keeps the literal text of a YAML node, so "1.10" stays "1.10"
// instead of becoming a float. Sequences collapse to a comma-joined list.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = ""
			return nil
		}
		*s = scalar(node.Value)
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				items = append(items, item.Value)
			}
		}
		*s = scalar(strings.Join(items, ","))
	default:
		*s = ""
	}
	return nil
}

// metaDoc is the subset of meta.yaml the scheduler reads.
type metaDoc struct {
	Package struct {
		Name    scalar `yaml:"name"`
		Version scalar `yaml:"version"`
	} `yaml:"package"`
	Build struct {
		Number scalar `yaml:"number"`
		String scalar `yaml:"string"`
		Skip   scalar `yaml:"skip"`
	} `yaml:"build"`
	Requirements struct {
		Build []scalar `yaml:"build"`
		Host  []scalar `yaml:"host"`
		Run   []scalar `yaml:"run"`
	} `yaml:"requirements"`
	Test struct {
		Requires []scalar `yaml:"requires"`
	} `yaml:"test"`
	Extra map[string]scalar `yaml:"extra"`
}

// Loader reads recipe directories for one target platform.
type Loader struct {
	platform Platform
}

// NewLoader creates a loader whose selectors evaluate for platform.
func NewLoader(platform Platform) *Loader {
	return &Loader{platform: platform}
}

// Load parses the recipe in dir. Recipe-level problems (missing or malformed
// meta.yaml, missing name or version) are returned as *ParseError; any other
// error is a system failure.
func (l *Loader) Load(ctx context.Context, dir string) (*Descriptor, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(dir, fsutil.RecipeFile)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ParseError{Path: dir, Err: fmt.Errorf("no %s found", fsutil.RecipeFile)}
		}
		return nil, fmt.Errorf("failed to read recipe %s: %w", path, err)
	}

	rendered, err := render(string(raw), l.platform)
	if err != nil {
		return nil, &ParseError{Path: dir, Err: err}
	}

	var doc metaDoc
	if err := yaml.Unmarshal([]byte(rendered), &doc); err != nil {
		return nil, &ParseError{Path: dir, Err: fmt.Errorf("failed to decode %s: %w", fsutil.RecipeFile, err)}
	}

	spec := Spec{
		Name:        strings.TrimSpace(string(doc.Package.Name)),
		Version:     strings.TrimSpace(string(doc.Package.Version)),
		BuildString: strings.TrimSpace(string(doc.Build.String)),
		Skip:        parseBool(string(doc.Build.Skip)),
		Build:       strs(append(doc.Requirements.Build, doc.Requirements.Host...)),
		Run:         strs(doc.Requirements.Run),
		Test:        strs(doc.Test.Requires),
		Extra:       make(map[string]string, len(doc.Extra)),
		Path:        dir,
	}
	if spec.Name == "" {
		return nil, &ParseError{Path: dir, Err: errors.New("package/name is required")}
	}
	if spec.Version == "" {
		return nil, &ParseError{Path: dir, Err: errors.New("package/version is required")}
	}
	if n := strings.TrimSpace(string(doc.Build.Number)); n != "" {
		spec.BuildNumber, err = strconv.Atoi(n)
		if err != nil || spec.BuildNumber < 0 {
			return nil, &ParseError{Path: dir, Err: fmt.Errorf("invalid build/number %q", n)}
		}
	}
	for k, v := range doc.Extra {
		spec.Extra[k] = string(v)
	}

	d := New(spec)
	logger.Debug("Recipe loaded.", "recipe", d.Name(), "version", d.Version(), "path", dir, "deps", len(d.Dependencies()))
	return d, nil
}

// LoadAll loads every directory in order. Recipes that fail to parse, and
// later recipes reusing an already loaded name, are returned as parse errors
// and left out of the result.
func (l *Loader) LoadAll(ctx context.Context, dirs []string) ([]*Descriptor, []*ParseError, error) {
	logger := ctxlog.FromContext(ctx)

	var (
		out     []*Descriptor
		skipped []*ParseError
	)
	byName := make(map[string]string)
	for _, dir := range dirs {
		d, err := l.Load(ctx, dir)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return nil, nil, err
			}
			logger.Warn("Skipping recipe that failed to parse.", "path", dir, "error", perr.Err)
			skipped = append(skipped, perr)
			continue
		}
		if first, ok := byName[d.Name()]; ok {
			perr := &ParseError{Path: dir, Err: fmt.Errorf("duplicate recipe name %q, first defined in %s", d.Name(), first)}
			logger.Warn("Skipping duplicate recipe.", "path", dir, "recipe", d.Name())
			skipped = append(skipped, perr)
			continue
		}
		byName[d.Name()] = dir
		out = append(out, d)
	}
	return out, skipped, nil
}

func strs(in []scalar) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, string(s))
		}
	}
	return out
}
