package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Meta renders a minimal meta.yaml. build lists build requirements and run
// lists run requirements.
func Meta(name, version string, build, run []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package:\n  name: %s\n  version: %q\n", name, version)
	sb.WriteString("requirements:\n")
	writeList(&sb, "build", build)
	writeList(&sb, "run", run)
	return sb.String()
}

func writeList(sb *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s:\n", key)
	for _, it := range items {
		fmt.Fprintf(sb, "    - %s\n", it)
	}
}

// WriteRecipes creates one recipe directory per entry of recipes, mapping a
// directory name to its meta.yaml content, under a fresh temporary root. It
// returns the root.
func WriteRecipes(t *testing.T, recipes map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for dir, meta := range recipes {
		path := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(path, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "meta.yaml"), []byte(meta), 0o644))
	}
	return root
}
