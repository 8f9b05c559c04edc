package publish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/metrics"
	"github.com/vk/buildall/internal/proc"
)

// alreadyExistsMarker in uploader output means another run published the
// artifact first.
const alreadyExistsMarker = "already exists"

// Credential is the uploader auth token for one run.
type Credential struct {
	Token string
}

// String never reveals the token.
func (c Credential) String() string {
	if c.Token == "" {
		return "<none>"
	}
	return "<redacted>"
}

// LogValue keeps the token out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// RetryPolicy bounds upload retries. After failed attempt i the uploader
// waits i*Unit before trying again.
type RetryPolicy struct {
	Attempts int
	Unit     time.Duration
}

// DefaultRetryPolicy allows five attempts, one second apart at first.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Unit: time.Second}

// UploadRequest describes one artifact upload.
type UploadRequest struct {
	User   string
	Path   string
	Force  bool
	Labels []string
}

// UploadResult reports how an upload succeeded.
type UploadResult struct {
	Attempts         int
	AlreadyPublished bool
}

// Uploader pushes artifacts to a remote channel with retries.
type Uploader struct {
	runner     proc.Runner
	command    string
	credential Credential
	policy     RetryPolicy
	metrics    *metrics.Recorder
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewUploader creates an Uploader. A policy with no attempts falls back to
// DefaultRetryPolicy.
func NewUploader(runner proc.Runner, command string, cred Credential, policy RetryPolicy, rec *metrics.Recorder) *Uploader {
	if policy.Attempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Uploader{
		runner:     runner,
		command:    command,
		credential: cred,
		policy:     policy,
		metrics:    rec,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Args returns the uploader arguments for req.
func (u *Uploader) Args(req UploadRequest) []string {
	var args []string
	if u.credential.Token != "" {
		args = append(args, "-t", u.credential.Token)
	}
	args = append(args, "upload", "--user", req.User)
	if req.Force {
		args = append(args, "--force")
	}
	for _, label := range req.Labels {
		args = append(args, "--label", label)
	}
	return append(args, req.Path)
}

// Upload runs the uploader until it succeeds, reports that the artifact
// already exists, or the retry ceiling is reached. It returns *UploadFailure
// when every attempt failed.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", req.Path)
	args := u.Args(req)

	var last *TransientUploadError
	for attempt := 1; attempt <= u.policy.Attempts; attempt++ {
		logger.Debug("Uploading artifact.", "attempt", attempt, "user", req.User, "labels", req.Labels, "credential", u.credential)
		res, err := u.runner.Run(ctx, u.command, args...)
		if ctx.Err() != nil {
			return UploadResult{Attempts: attempt}, ctx.Err()
		}

		switch {
		case strings.Contains(strings.ToLower(res.Output), alreadyExistsMarker):
			u.metrics.UploadAttempt("already_exists")
			logger.Info("Artifact already published, nothing to upload.", "attempt", attempt)
			return UploadResult{Attempts: attempt, AlreadyPublished: true}, nil
		case err == nil && res.ExitCode == 0:
			u.metrics.UploadAttempt("success")
			logger.Info("📦 Artifact uploaded.", "attempt", attempt, "labels", req.Labels)
			return UploadResult{Attempts: attempt}, nil
		}

		u.metrics.UploadAttempt("transient")
		last = &TransientUploadError{Attempt: attempt, ExitCode: res.ExitCode, Output: tail(res.Output, 20), Err: err}
		logger.Warn("Upload attempt failed.", "attempt", attempt, "error", last)

		if attempt < u.policy.Attempts {
			if err := u.sleep(ctx, time.Duration(attempt)*u.policy.Unit); err != nil {
				return UploadResult{Attempts: attempt}, err
			}
		}
	}
	return UploadResult{Attempts: u.policy.Attempts}, &UploadFailure{Path: req.Path, Attempts: u.policy.Attempts, Last: last}
}
