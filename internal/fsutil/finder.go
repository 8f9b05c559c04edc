// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RecipeFile is the build-metadata document every recipe directory holds.
const RecipeFile = "meta.yaml"

// FindRecipeDirs expands each pattern with filepath.Glob and resolves every
// match to recipe directories. A directory holding RecipeFile is a recipe; a
// directory without one is walked for nested recipes; a path to RecipeFile
// itself resolves to its directory. Patterns with no match are passed through
// untouched so the loader can report them. Order follows the patterns, then
// lexical order within a pattern, and duplicates are dropped.
func FindRecipeDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]struct{})
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid recipe pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}

		for _, match := range matches {
			found, err := resolveMatch(match)
			if err != nil {
				return nil, err
			}
			for _, dir := range found {
				add(dir)
			}
		}
	}
	return dirs, nil
}

func resolveMatch(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		if filepath.Base(path) == RecipeFile {
			return []string{filepath.Dir(path)}, nil
		}
		return nil, nil
	}
	if _, err := os.Stat(filepath.Join(path, RecipeFile)); err == nil {
		return []string{path}, nil
	}

	var dirs []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == RecipeFile {
			dirs = append(dirs, filepath.Dir(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
