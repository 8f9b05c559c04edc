package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/metrics"
	"github.com/vk/buildall/internal/target"
)

// Options are the per-run publishing switches.
type Options struct {
	// Upload enables uploading to User after a successful build.
	Upload bool
	User   string
	Force  bool
	// Dev labels every upload "dev". Only valid together with Force.
	Dev    bool
	NoTest bool
}

// Outcome reports what happened to one target.
type Outcome struct {
	Target   target.BuildTarget
	Artifact string
	Labels   []string
	Upload   *UploadResult
}

// Pipeline builds targets and publishes their artifacts.
type Pipeline struct {
	builder   *Builder
	uploader  *Uploader
	blocklist Blocklist
	outputDir string
	metrics   *metrics.Recorder
}

// NewPipeline wires a pipeline. uploader may be nil for runs that never
// upload.
func NewPipeline(builder *Builder, uploader *Uploader, blocklist Blocklist, outputDir string, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		builder:   builder,
		uploader:  uploader,
		blocklist: blocklist,
		outputDir: outputDir,
		metrics:   rec,
	}
}

// BuildAndPublish builds t and, when requested, uploads the artifact. Errors
// are confined to t: *BuildFailure or *UploadFailure.
func (p *Pipeline) BuildAndPublish(ctx context.Context, t target.BuildTarget, opts Options) (Outcome, error) {
	logger := ctxlog.FromContext(ctx).With("target", t.Filename)
	out := Outcome{Target: t, Artifact: filepath.Join(p.outputDir, t.Filename)}

	start := time.Now()
	err := p.builder.Build(ctx, t, opts.NoTest)
	if err == nil {
		if _, statErr := os.Stat(out.Artifact); statErr != nil {
			err = &BuildFailure{Target: t.Filename, ExitCode: -1, Reason: fmt.Sprintf("artifact not found at %s", out.Artifact)}
		}
	}
	if err != nil {
		p.metrics.Build("failure", time.Since(start))
		var bf *BuildFailure
		if errors.As(err, &bf) && bf.Output != "" {
			logger.Error("Build failed.", "exit_code", bf.ExitCode, "output", bf.Output)
		}
		return out, err
	}
	p.metrics.Build("success", time.Since(start))
	logger.Info("✅ Build finished.", "artifact", out.Artifact, "took", time.Since(start).Round(time.Second))

	if !opts.Upload {
		return out, nil
	}
	if p.uploader == nil {
		return out, errors.New("upload requested but no uploader configured")
	}

	out.Labels = SelectLabels(ctx, t.Recipe, opts.Dev, p.blocklist)
	res, err := p.uploader.Upload(ctx, UploadRequest{
		User:   opts.User,
		Path:   out.Artifact,
		Force:  opts.Force || t.Recipe.ForceUpload(),
		Labels: out.Labels,
	})
	out.Upload = &res
	switch {
	case err != nil:
		p.metrics.Upload("failed")
		return out, err
	case res.AlreadyPublished:
		p.metrics.Upload("already_published")
	default:
		p.metrics.Upload("success")
	}
	return out, nil
}
