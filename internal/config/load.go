package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/matrix"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the top-level structure of a settings file.
type hclFile struct {
	Subdir         *string  `hcl:"subdir,optional"`
	OutputDir      *string  `hcl:"output_dir,optional"`
	ChannelBaseURL *string  `hcl:"channel_base_url,optional"`
	CheckAgainst   []string `hcl:"check_against,optional"`
	MetricsFile    *string  `hcl:"metrics_file,optional"`

	Runtime      *hclAxis     `hcl:"runtime,block"`
	NumLib       *hclAxis     `hcl:"numlib,block"`
	Incompatible []*hclPair   `hcl:"incompatible,block"`
	Builder      *hclBuilder  `hcl:"builder,block"`
	Uploader     *hclUploader `hcl:"uploader,block"`
}

type hclAxis struct {
	Component string   `hcl:"component,label"`
	Versions  []string `hcl:"versions"`
	Tag       *string  `hcl:"tag,optional"`
}

type hclPair struct {
	Runtime string `hcl:"runtime"`
	NumLib  string `hcl:"numlib"`
}

type hclBuilder struct {
	Command  *string  `hcl:"command,optional"`
	Channels []string `hcl:"channels,optional"`
}

type hclUploader struct {
	Command   *string `hcl:"command,optional"`
	Token     *string `hcl:"token,optional"`
	Attempts  *int    `hcl:"attempts,optional"`
	Backoff   *string `hcl:"backoff,optional"`
	Blocklist *string `hcl:"blocklist,optional"`
}

// Load returns the default settings overlaid with the file at path, if any.
// environ, in os.Environ form, is exposed to expressions as the env object
// and supplies the token fallback.
func Load(ctx context.Context, path string, environ []string) (*Settings, error) {
	logger := ctxlog.FromContext(ctx)
	env := envMap(environ)

	s := Default()
	if path != "" {
		logger.Debug("Loading settings file.", "path", path)
		parser := hclparse.NewParser()
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, diags)
		}
		if err := decode(f.Body, envContext(env), s); err != nil {
			return nil, fmt.Errorf("failed to decode settings file %s: %w", path, err)
		}
	}

	if s.Uploader.Token == "" {
		s.Uploader.Token = env[TokenEnv]
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values a run cannot work with.
func (s *Settings) Validate() error {
	if _, err := matrix.New(s.Runtime, s.NumLib); err != nil {
		return err
	}
	if s.Builder.Command == "" {
		return fmt.Errorf("builder command must not be empty")
	}
	if s.Uploader.Command == "" {
		return fmt.Errorf("uploader command must not be empty")
	}
	if s.Uploader.Attempts < 1 {
		return fmt.Errorf("uploader attempts must be at least 1, got %d", s.Uploader.Attempts)
	}
	if s.Uploader.Backoff < 0 {
		return fmt.Errorf("uploader backoff must not be negative, got %s", s.Uploader.Backoff)
	}
	return nil
}

func decode(body hcl.Body, evalCtx *hcl.EvalContext, s *Settings) error {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, evalCtx, &parsed); diags.HasErrors() {
		return diags
	}

	setString(&s.Subdir, parsed.Subdir)
	setString(&s.OutputDir, parsed.OutputDir)
	setString(&s.ChannelBaseURL, parsed.ChannelBaseURL)
	setString(&s.MetricsFile, parsed.MetricsFile)
	if parsed.CheckAgainst != nil {
		s.CheckAgainst = parsed.CheckAgainst
	}

	if parsed.Runtime != nil {
		s.Runtime = parsed.Runtime.axis(s.Runtime)
	}
	if parsed.NumLib != nil {
		s.NumLib = parsed.NumLib.axis(s.NumLib)
	}
	// Any incompatible block replaces the built-in pairs.
	if len(parsed.Incompatible) > 0 {
		s.Incompatible = make([]matrix.PairRule, 0, len(parsed.Incompatible))
		for _, p := range parsed.Incompatible {
			s.Incompatible = append(s.Incompatible, matrix.PairRule{Runtime: p.Runtime, NumLib: p.NumLib})
		}
	}

	if b := parsed.Builder; b != nil {
		setString(&s.Builder.Command, b.Command)
		if b.Channels != nil {
			s.Builder.Channels = b.Channels
		}
	}

	if u := parsed.Uploader; u != nil {
		setString(&s.Uploader.Command, u.Command)
		setString(&s.Uploader.Token, u.Token)
		setString(&s.Uploader.Blocklist, u.Blocklist)
		if u.Attempts != nil {
			s.Uploader.Attempts = *u.Attempts
		}
		if u.Backoff != nil {
			d, err := time.ParseDuration(*u.Backoff)
			if err != nil {
				return fmt.Errorf("invalid uploader backoff %q: %w", *u.Backoff, err)
			}
			s.Uploader.Backoff = d
		}
	}
	return nil
}

// axis keeps the default tag when the block names the same component
// without one.
func (a *hclAxis) axis(def matrix.Axis) matrix.Axis {
	out := matrix.Axis{Component: a.Component, Values: a.Versions}
	switch {
	case a.Tag != nil:
		out.Tag = *a.Tag
	case a.Component == def.Component:
		out.Tag = def.Tag
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func envMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// envContext exposes the environment to settings expressions as env.NAME.
func envContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vals)},
	}
}
