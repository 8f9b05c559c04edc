// Package semver parses recipe versions into semantic versions.
//
// Recipe versions follow conda/PEP 440 spelling ("1.4rc1", "2.0.dev3",
// "0.9.post1") rather than strict semver ("1.4.0-rc1"). ParseVersion maps
// the former onto the latter before handing it to
// github.com/Masterminds/semver/v3.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a parsed recipe version.
type Version struct {
	raw string
	v   *mm.Version
}

// pep440 captures release, pre-release, post-release and dev segments.
var pep440 = regexp.MustCompile(`^v?(\d+(?:\.\d+){0,2})` +
	`(?:[._-]?(a|alpha|b|beta|c|rc|pre|preview)[._-]?(\d*))?` +
	`(?:[._-]?(post|rev|r)[._-]?(\d*))?` +
	`(?:[._-]?(dev)[._-]?(\d*))?` +
	`(?:\+([0-9a-z.]+))?$`)

var preTags = map[string]string{
	"a":       "alpha",
	"alpha":   "alpha",
	"b":       "beta",
	"beta":    "beta",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

// ParseVersion parses a conda/PEP 440 style version string.
func ParseVersion(raw string) (Version, error) {
	normalized, err := normalize(raw)
	if err != nil {
		return Version{}, err
	}
	v, err := mm.NewVersion(normalized)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{raw: raw, v: v}, nil
}

func normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	m := pep440.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("semver: unsupported version %q", raw)
	}

	var pre []string
	if m[2] != "" {
		pre = append(pre, preTags[m[2]]+m[3])
	}
	if m[6] != "" {
		pre = append(pre, "dev"+m[7])
	}

	var meta []string
	if m[4] != "" {
		meta = append(meta, "post"+m[5])
	}
	if m[8] != "" {
		meta = append(meta, m[8])
	}

	out := m[1]
	if len(pre) > 0 {
		out += "-" + strings.Join(pre, ".")
	}
	if len(meta) > 0 {
		out += "+" + strings.Join(meta, ".")
	}
	return out, nil
}

// IsPrerelease reports whether the version carries a pre-release or dev segment.
func (v Version) IsPrerelease() bool {
	return v.v != nil && v.v.Prerelease() != ""
}

// String returns the version as it was written in the recipe.
func (v Version) String() string {
	return v.raw
}

// IsPrerelease parses raw and reports whether it is a pre-release. Versions
// that cannot be parsed are treated as final releases.
func IsPrerelease(raw string) bool {
	v, err := ParseVersion(raw)
	if err != nil {
		return false
	}
	return v.IsPrerelease()
}
