package recipe

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Keys of the recipe "extra" mapping the scheduler understands.
const (
	ExtraForceUpload  = "force_upload"
	ExtraUpload       = "upload"
	ExtraIncludeLabel = "include_omnia_label"
)

// Spec holds the fields a Descriptor is built from.
type Spec struct {
	Name        string
	Version     string
	BuildNumber int
	BuildString string
	Build       []string
	Run         []string
	Test        []string
	Extra       map[string]string
	Skip        bool
	Path        string
}

// Descriptor is the immutable, parsed view of one recipe. Accessors return
// copies so callers cannot mutate a loaded descriptor.
type Descriptor struct {
	spec Spec
}

// New builds a Descriptor from spec, copying every slice and map and reducing
// dependency entries to bare names.
func New(spec Spec) *Descriptor {
	d := spec
	d.Build = bareNames(spec.Build)
	d.Run = bareNames(spec.Run)
	d.Test = bareNames(spec.Test)
	d.Extra = maps.Clone(spec.Extra)
	if d.Extra == nil {
		d.Extra = map[string]string{}
	}
	return &Descriptor{spec: d}
}

func (d *Descriptor) Name() string        { return d.spec.Name }
func (d *Descriptor) Version() string     { return d.spec.Version }
func (d *Descriptor) BuildNumber() int    { return d.spec.BuildNumber }
func (d *Descriptor) BuildString() string { return d.spec.BuildString }
func (d *Descriptor) Skip() bool          { return d.spec.Skip }

// Path is the recipe directory handed to the builder.
func (d *Descriptor) Path() string { return d.spec.Path }

func (d *Descriptor) BuildDeps() []string { return slices.Clone(d.spec.Build) }
func (d *Descriptor) RunDeps() []string   { return slices.Clone(d.spec.Run) }
func (d *Descriptor) TestDeps() []string  { return slices.Clone(d.spec.Test) }

// Dependencies returns the build, run and test dependency names in that
// order without duplicates.
func (d *Descriptor) Dependencies() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, group := range [][]string{d.spec.Build, d.spec.Run, d.spec.Test} {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// BuildsAgainst reports whether component is one of the build dependencies.
func (d *Descriptor) BuildsAgainst(component string) bool {
	return slices.Contains(d.spec.Build, component)
}

// Extra returns the value of one key of the extra mapping.
func (d *Descriptor) Extra(key string) (string, bool) {
	v, ok := d.spec.Extra[key]
	return v, ok
}

// Extras returns a copy of the extra mapping.
func (d *Descriptor) Extras() map[string]string {
	return maps.Clone(d.spec.Extra)
}

// ForceUpload reports whether extra/force_upload is set to a true value.
func (d *Descriptor) ForceUpload() bool {
	v, ok := d.spec.Extra[ExtraForceUpload]
	return ok && parseBool(v)
}

// UploadLabels returns the comma-separated extra/upload labels, trimmed and
// with empty entries removed.
func (d *Descriptor) UploadLabels() []string {
	v, ok := d.spec.Extra[ExtraUpload]
	if !ok {
		return nil
	}
	var labels []string
	for _, label := range strings.Split(v, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// IncludeLabel returns extra/include_omnia_label, if any.
func (d *Descriptor) IncludeLabel() string {
	return strings.TrimSpace(d.spec.Extra[ExtraIncludeLabel])
}

// bareNames strips version constraints and build selectors from requirement
// entries, keeping the first occurrence of each name.
func bareNames(reqs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, req := range reqs {
		name := BareName(req)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// BareName reduces a requirement such as "numpy >=1.9" or "scipy>=0.14" to
// the package name.
func BareName(req string) string {
	req = strings.TrimSpace(req)
	if i := strings.IndexAny(req, " \t<>=!~"); i >= 0 {
		req = req[:i]
	}
	return req
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "y":
		return true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
