package publish

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/recipe"
	"github.com/vk/buildall/internal/semver"
)

// Well-known upload labels.
const (
	LabelMain = "main"
	LabelDev  = "dev"
	LabelRC   = "rc"
	LabelBeta = "beta"
)

// KnownLabels is the closed set extra/include_omnia_label may name.
var KnownLabels = []string{LabelMain, LabelDev, LabelRC, LabelBeta}

// Blocklist holds package names exempt from automatic pre-release labelling.
type Blocklist map[string]struct{}

// Contains reports whether name is blocklisted. A nil Blocklist is empty.
func (b Blocklist) Contains(name string) bool {
	_, ok := b[name]
	return ok
}

// ParseBlocklist reads one package name per line. Blank lines and lines
// starting with '#' are ignored.
func ParseBlocklist(r io.Reader) (Blocklist, error) {
	bl := make(Blocklist)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bl[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return bl, nil
}

// LoadBlocklist reads the blocklist file at path. An empty path yields an
// empty list.
func LoadBlocklist(path string) (Blocklist, error) {
	if path == "" {
		return Blocklist{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blocklist: %w", err)
	}
	defer f.Close()

	bl, err := ParseBlocklist(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist %s: %w", path, err)
	}
	return bl, nil
}

// SelectLabels picks the labels an artifact of r is uploaded under:
//  1. a pre-release version not on the blocklist gets "dev";
//  2. otherwise dev mode gets "dev";
//  3. otherwise the labels listed in extra/upload;
//  4. otherwise "main".
//
// extra/include_omnia_label then adds one label from KnownLabels; any other
// value is logged and ignored.
func SelectLabels(ctx context.Context, r *recipe.Descriptor, dev bool, bl Blocklist) []string {
	var labels []string
	switch {
	case semver.IsPrerelease(r.Version()) && !bl.Contains(r.Name()):
		labels = []string{LabelDev}
	case dev:
		labels = []string{LabelDev}
	case len(r.UploadLabels()) > 0:
		labels = r.UploadLabels()
	default:
		labels = []string{LabelMain}
	}

	if extra := r.IncludeLabel(); extra != "" {
		switch {
		case !slices.Contains(KnownLabels, extra):
			ctxlog.FromContext(ctx).Warn("Ignoring unknown include label.",
				"recipe", r.Name(), "label", extra, "allowed", strings.Join(KnownLabels, ","))
		case !slices.Contains(labels, extra):
			labels = append(labels, extra)
		}
	}
	return labels
}
