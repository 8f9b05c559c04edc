package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/buildall/internal/config"
	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/dag"
	"github.com/vk/buildall/internal/evaluator"
	"github.com/vk/buildall/internal/fsutil"
	"github.com/vk/buildall/internal/index"
	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/metrics"
	"github.com/vk/buildall/internal/publish"
	"github.com/vk/buildall/internal/recipe"
	"github.com/vk/buildall/internal/target"
	"github.com/vk/buildall/internal/toolchain"
)

// Run executes one build-all pass: load and order the recipes, expand them
// into targets, decide what needs building against a single index snapshot,
// then either report the plan (dry run) or build and publish it in order.
// The returned error is fatal to the whole run; per-target failures are in
// the Report.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	settings, err := config.Load(ctx, a.config.SettingsPath, a.deps.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	a.applyOverrides(settings)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	rec := metrics.New()
	if settings.MetricsFile != "" {
		defer func() {
			if err := rec.WriteTextfile(settings.MetricsFile); err != nil {
				a.logger.Warn("Failed to write metrics file.", "path", settings.MetricsFile, "error", err)
			}
		}()
	}

	report := &Report{DryRun: a.config.DryRun}

	recipes, err := a.loadRecipes(ctx, settings, rec, report)
	if err != nil {
		return nil, err
	}

	ordered, err := dag.Resolve(ctx, recipes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build order: %w", err)
	}

	locator := toolchain.NewLocator(a.deps.Runner, a.deps.LookPath)
	tc, err := locator.Init(ctx, toolchain.Options{
		BuilderCommand:  settings.Builder.Command,
		UploaderCommand: settings.Uploader.Command,
		NeedUploader:    a.config.UploadUser != "",
		OutputDir:       settings.OutputDir,
		Subdir:          settings.Subdir,
	})
	var local evaluator.LocalStore
	switch {
	case err == nil:
		local = evaluator.DirStore(tc.OutputDir)
	case a.config.DryRun:
		a.logger.Warn("Toolchain unavailable, local artifacts are not checked.", "error", err)
	default:
		return nil, fmt.Errorf("failed to initialise toolchain: %w", err)
	}

	snap, err := a.fetchSnapshot(ctx, settings)
	if err != nil {
		return nil, err
	}

	if err := a.evaluate(ctx, settings, ordered, local, snap, rec, report); err != nil {
		return nil, err
	}

	if a.config.DryRun {
		for _, t := range report.Scheduled {
			a.logger.Info("Would build target.", "target", t.String(), "artifact", t.Filename)
		}
		a.logger.Info("🏁 Dry run finished.", "scheduled", len(report.Scheduled), "skipped", report.Skipped(), "invalid_recipes", len(report.ParseErrors))
		return report, nil
	}

	if err := a.execute(ctx, settings, tc, rec, report); err != nil {
		return report, err
	}

	if len(report.Failures) > 0 {
		a.logger.Error("Some targets failed.", "count", len(report.Failures), "targets", report.FailedTargets())
	}
	a.logger.Info("🏁 Execution finished.", "built", len(report.Outcomes), "failed", len(report.Failures), "skipped", report.Skipped(), "invalid_recipes", len(report.ParseErrors))
	return report, nil
}

// applyOverrides lays command-line values over the loaded settings.
func (a *App) applyOverrides(s *config.Settings) {
	if len(a.config.Python) > 0 {
		s.Runtime.Values = slices.Clone(a.config.Python)
	}
	if len(a.config.Numpy) > 0 {
		s.NumLib.Values = slices.Clone(a.config.Numpy)
	}
	if len(a.config.CheckAgainst) > 0 {
		s.CheckAgainst = slices.Clone(a.config.CheckAgainst)
	}
	if a.config.OutputDir != "" {
		s.OutputDir = a.config.OutputDir
	}
	if a.config.Blocklist != "" {
		s.Uploader.Blocklist = a.config.Blocklist
	}
	if a.config.MetricsFile != "" {
		s.MetricsFile = a.config.MetricsFile
	}
}

func (a *App) loadRecipes(ctx context.Context, s *config.Settings, rec *metrics.Recorder, report *Report) ([]*recipe.Descriptor, error) {
	dirs, err := fsutil.FindRecipeDirs(a.config.RecipePatterns)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Recipe directories found.", "count", len(dirs))

	recipes, parseErrs, err := recipe.NewLoader(recipe.PlatformForSubdir(s.Subdir)).LoadAll(ctx, dirs)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	report.ParseErrors = parseErrs
	rec.Recipes("loaded", len(recipes))
	rec.Recipes("invalid", len(parseErrs))
	a.logger.Info("📖 Recipes loaded.", "loaded", len(recipes), "invalid", len(parseErrs))
	return recipes, nil
}

// checkChannels are the channels searched for published artifacts. The
// upload account is always among them.
func (a *App) checkChannels(s *config.Settings) []string {
	channels := slices.Clone(s.CheckAgainst)
	if u := a.config.UploadUser; u != "" && !slices.Contains(channels, u) {
		channels = append(channels, u)
	}
	return channels
}

// fetchSnapshot queries the remote index once for the whole run. Artifacts
// published by others after this point are not seen until the next run.
func (a *App) fetchSnapshot(ctx context.Context, s *config.Settings) (*index.Snapshot, error) {
	channels := a.checkChannels(s)
	if len(channels) == 0 {
		a.logger.Debug("No channels to check against.")
		return index.NewSnapshot(), nil
	}

	fetcher := a.deps.Fetcher
	if fetcher == nil {
		fetcher = index.NewHTTPFetcher(nil, s.ChannelBaseURL, s.Subdir)
	}
	snap, err := fetcher.Fetch(ctx, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote index: %w", err)
	}
	a.logger.Info("🔎 Remote index fetched.", "channels", channels, "artifacts", snap.Len())
	return snap, nil
}

func (a *App) evaluate(ctx context.Context, s *config.Settings, ordered []*recipe.Descriptor, local evaluator.LocalStore, snap *index.Snapshot, rec *metrics.Recorder, report *Report) error {
	expander, err := matrix.New(s.Runtime, s.NumLib, s.Rules()...)
	if err != nil {
		return err
	}
	factory := target.Factory{Runtime: s.Runtime, NumLib: s.NumLib}
	ev := evaluator.New(local, snap, a.config.Force)

	for _, r := range ordered {
		rctx := ctxlog.With(ctx, "recipe", r.Name())
		targets := factory.Expand(r, expander.Expand(rctx, r))
		for _, e := range ev.EvaluateRecipe(rctx, targets) {
			rec.Target(e.Decision.String())
			report.Evaluations = append(report.Evaluations, e)
			if e.Decision.Scheduled() {
				report.Scheduled = append(report.Scheduled, e.Target)
				continue
			}
			a.logger.Info("Skipping target.", "target", e.Target.String(), "reason", e.Decision.String())
		}
	}
	return nil
}

func (a *App) execute(ctx context.Context, s *config.Settings, tc *toolchain.Toolchain, rec *metrics.Recorder, report *Report) error {
	if len(report.Scheduled) == 0 {
		a.logger.Info("Nothing to build.")
		return nil
	}

	builder := &publish.Builder{
		Runner:   a.deps.Runner,
		Command:  tc.Builder,
		Channels: s.Builder.Channels,
		Verbose:  a.config.Verbosity >= MaxVerbosity,
	}
	var (
		uploader  *publish.Uploader
		blocklist publish.Blocklist
	)
	if a.config.UploadUser != "" {
		var err error
		blocklist, err = publish.LoadBlocklist(s.Uploader.Blocklist)
		if err != nil {
			return err
		}
		uploader = publish.NewUploader(a.deps.Runner, tc.Uploader, publish.Credential{Token: s.Uploader.Token}, s.RetryPolicy(), rec)
	}
	pipeline := publish.NewPipeline(builder, uploader, blocklist, tc.OutputDir, rec)
	opts := publish.Options{
		Upload: a.config.UploadUser != "",
		User:   a.config.UploadUser,
		Force:  a.config.Force,
		Dev:    a.config.Dev,
		NoTest: a.config.NoTest,
	}

	a.logger.Info("🚀 Starting build pipeline...", "targets", len(report.Scheduled))
	for _, t := range report.Scheduled {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		out, err := pipeline.BuildAndPublish(ctx, t, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return fmt.Errorf("run interrupted: %w", err)
			}
			a.logger.Error("Target failed.", "target", t.String(), "error", err)
			report.Failures = append(report.Failures, Failure{Target: t, Err: err})
			continue
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return nil
}
