// Package pipeline runs one meme request end to end: it validates the
// request, fetches and probes the assets in a private scratch directory,
// plans the processing graph, executes it and packages the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/archive"
	"clipforge/internal/compose"
	"clipforge/internal/config"
	"clipforge/internal/errs"
	"clipforge/internal/fetch"
	"clipforge/internal/filtergraph"
	"clipforge/internal/layout"
	"clipforge/internal/logx"
	"clipforge/internal/media"
	"clipforge/internal/metrics"
	"clipforge/internal/paths"
	"clipforge/internal/script"
)

// Stage names used for logs and metrics.
const (
	StageFetch   = "fetch"
	StageProbe   = "probe"
	StageCompose = "compose"
	StageExecute = "execute"
	StagePackage = "package"
)

// Fetcher retrieves one asset into dir.
type Fetcher interface {
	Fetch(ctx context.Context, ref, dir, name, defaultExt string) (string, error)
}

// Prober reads stream facts from a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// Tools locates the media binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// Runner executes requests. It is safe for concurrent use; every request
// gets its own scratch directory.
type Runner struct {
	ScratchRoot string
	// MaxDurationSeconds is the largest duration cap a request may ask for.
	MaxDurationSeconds int
	Env                compose.Env
	Fetcher            Fetcher
	Prober             Prober
	Engine             *media.Engine
	Metrics            *metrics.Metrics
	Logger             *slog.Logger
	Now                func() time.Time
}

// New wires a runner from configuration.
func New(cfg config.Config, resolver *script.Resolver, tools Tools, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logx.Discard()
	}
	runner := media.CmdRunner{Logger: logger}
	return &Runner{
		ScratchRoot:        cfg.Scratch.Root,
		MaxDurationSeconds: cfg.Limits.MaxDurationSeconds,
		Env: compose.Env{
			Resolver: resolver,
			Measurer: layout.NewCanvasMeasurer(logger),
			Style:    compose.StyleFromConfig(cfg),
		},
		Fetcher: fetch.New(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes, logx.WithComponent(logger, "fetch")),
		Prober:  media.NewProber(runner, tools.FFprobe, logx.WithComponent(logger, "probe")),
		Engine:  media.NewEngine(runner, tools.FFmpeg, OutputProfile(cfg), logx.WithComponent(logger, "engine")),
		Metrics: m,
		Logger:  logger,
		Now:     time.Now,
	}
}

// OutputProfile extracts the final encode settings from cfg.
func OutputProfile(cfg config.Config) media.OutputProfile {
	p := media.DefaultOutputProfile()
	p.VideoCodec = cfg.Output.VideoCodec
	p.Preset = cfg.Output.Preset
	if cfg.Output.CRF != nil {
		p.CRF = *cfg.Output.CRF
	}
	p.AudioCodec = cfg.Audio.Codec
	p.AudioBitrateKbps = cfg.Audio.BitrateKbps
	return p
}

// Options control where a finished render goes.
type Options struct {
	// OutDir receives the artifact. It is created if missing.
	OutDir string
	// Archive packages the video with metadata.json into <slug>_pack.zip;
	// otherwise the bare <slug>.mp4 is delivered.
	Archive bool
	// Reporter, when set, is told about every stage transition.
	Reporter Reporter
}

// Reporter observes stage progress. Calls come from the goroutine running
// the request.
type Reporter interface {
	StageStarted(stage string)
	StageFinished(stage string, err error, elapsed time.Duration)
}

// Stages lists the stages of Run in order.
func Stages() []string {
	return []string{StageFetch, StageProbe, StageCompose, StageExecute, StagePackage}
}

// Result describes a delivered render.
type Result struct {
	ID       string
	Mode     compose.Mode
	Path     string
	Metadata archive.Metadata
	Elapsed  time.Duration
}

// Plan is a dry run: the graph and the engine jobs a request would run.
type Plan struct {
	Mode     compose.Mode
	Facts    compose.Facts
	Graph    *filtergraph.Graph
	Schedule media.Schedule
}

type prepared struct {
	ws    *paths.Workspace
	files map[string]string
	facts compose.Facts
	graph *filtergraph.Graph
}

// Run renders req and delivers the artifact to opts.OutDir. Scratch files are
// removed before Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context, req compose.Request, opts Options) (res Result, err error) {
	start := r.now()
	mode := req.Mode()
	done := r.Metrics.Started(string(mode))
	defer func() { done(err, errs.KindOf(err).String()) }()

	if err := compose.Validate(req, r.MaxDurationSeconds); err != nil {
		return Result{}, err
	}

	ws, err := paths.NewWorkspace(r.ScratchRoot, req.ID)
	if err != nil {
		return Result{}, err
	}
	logger := logx.WithRequestID(r.logger(), ws.ID)
	defer r.release(logger, ws)

	logger.Info("render started", "mode", mode, "clips", len(req.Clips),
		"dialogue", req.HasDialogue(), "music", req.HasMusic())

	p, err := r.prepare(ctx, logger, ws, req, opts.Reporter)
	if err != nil {
		err = interrupted(ctx, err)
		logger.Error("render failed", "kind", errs.KindOf(err).String(), "err", err)
		return Result{}, err
	}

	slug := paths.Slug(req.ID)
	video := filepath.Join(ws.OutputsDir, slug+".mp4")
	engine := *r.Engine
	engine.LogDir = ws.LogsDir
	engine.Logger = logger
	err = r.stage(opts.Reporter, StageExecute, func() error {
		return engine.Execute(ctx, p.graph, p.files, ws.Dir, video)
	})
	if err != nil {
		err = interrupted(ctx, err)
		logger.Error("render failed", "kind", errs.KindOf(err).String(), "err", err)
		return Result{}, err
	}

	meta := Metadata(req)
	meta.Outputs.Video = filepath.Base(video)
	meta.Stamp(r.now())

	var dest string
	err = r.stage(opts.Reporter, StagePackage, func() error {
		var perr error
		dest, perr = deliver(ws, video, meta, slug, opts)
		return perr
	})
	if err != nil {
		err = interrupted(ctx, err)
		logger.Error("render failed", "kind", errs.KindOf(err).String(), "err", err)
		return Result{}, err
	}

	elapsed := r.now().Sub(start)
	logger.Info("render finished", "output", dest, "elapsed", elapsed)
	return Result{ID: ws.ID, Mode: mode, Path: dest, Metadata: meta, Elapsed: elapsed}, nil
}

// Plan fetches and probes req's assets and returns what Run would execute
// without running the engine.
func (r *Runner) Plan(ctx context.Context, req compose.Request) (*Plan, error) {
	if err := compose.Validate(req, r.MaxDurationSeconds); err != nil {
		return nil, err
	}
	ws, err := paths.NewWorkspace(r.ScratchRoot, req.ID)
	if err != nil {
		return nil, err
	}
	logger := logx.WithRequestID(r.logger(), ws.ID)
	defer r.release(logger, ws)

	p, err := r.prepare(ctx, logger, ws, req, nil)
	if err != nil {
		return nil, interrupted(ctx, err)
	}
	video := filepath.Join(ws.OutputsDir, paths.Slug(req.ID)+".mp4")
	sched, err := r.Engine.Compile(p.graph, p.files, ws.Dir, video)
	if err != nil {
		return nil, err
	}
	return &Plan{Mode: req.Mode(), Facts: p.facts, Graph: p.graph, Schedule: sched}, nil
}

func (r *Runner) prepare(ctx context.Context, logger *slog.Logger, ws *paths.Workspace, req compose.Request, rep Reporter) (prepared, error) {
	p := prepared{ws: ws}

	err := r.stage(rep, StageFetch, func() error {
		var ferr error
		p.files, ferr = r.fetchAll(ctx, ws, req)
		return ferr
	})
	if err != nil {
		return p, err
	}
	logger.Debug("assets fetched", "count", len(p.files))

	err = r.stage(rep, StageProbe, func() error {
		var perr error
		p.facts, perr = r.probeAll(ctx, req, p.files)
		return perr
	})
	if err != nil {
		return p, err
	}

	err = r.stage(rep, StageCompose, func() error {
		var cerr error
		p.graph, cerr = compose.Compose(req, p.facts, r.Env)
		return cerr
	})
	if err != nil {
		return p, err
	}
	logger.Debug("graph planned", "nodes", len(p.graph.Nodes), "clip_jobs", len(p.graph.ClipNodes()))
	return p, nil
}

type asset struct {
	role string
	ref  string
	ext  string
}

func assets(req compose.Request) []asset {
	var out []asset
	for i, role := range compose.ClipRoles(req) {
		out = append(out, asset{role: role, ref: req.Clips[i], ext: fetch.DefaultVideoExt})
	}
	if req.HasDialogue() {
		out = append(out, asset{role: compose.RoleDialogue, ref: req.Dialogue, ext: fetch.DefaultAudioExt})
	}
	if req.HasMusic() {
		out = append(out, asset{role: compose.RoleMusic, ref: req.Music, ext: fetch.DefaultAudioExt})
	}
	return out
}

func (r *Runner) fetchAll(ctx context.Context, ws *paths.Workspace, req compose.Request) (map[string]string, error) {
	var mu sync.Mutex
	files := make(map[string]string)
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range assets(req) {
		g.Go(func() error {
			path, err := r.Fetcher.Fetch(gctx, a.ref, ws.InputsDir, a.role, a.ext)
			if err != nil {
				return err
			}
			mu.Lock()
			files[a.role] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Runner) probeAll(ctx context.Context, req compose.Request, files map[string]string) (compose.Facts, error) {
	roles := compose.ClipRoles(req)
	infos := make([]media.Info, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		g.Go(func() error {
			info, err := r.Prober.Probe(gctx, files[role])
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return compose.Facts{}, err
	}
	return compose.Facts{Clips: infos}, nil
}

func (r *Runner) stage(rep Reporter, name string, fn func() error) error {
	if rep != nil {
		rep.StageStarted(name)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.Metrics.ObserveStage(name, elapsed)
	if rep != nil {
		rep.StageFinished(name, err, elapsed)
	}
	return err
}

// interrupted reports a failure caused by cancellation as ctx's error, so
// callers can tell an aborted request from a failed one.
func interrupted(ctx context.Context, err error) error {
	cause := ctx.Err()
	if err == nil || cause == nil || errors.Is(err, cause) {
		return err
	}
	return fmt.Errorf("%w: %v", cause, err)
}

func (r *Runner) release(logger *slog.Logger, ws *paths.Workspace) {
	if err := ws.Release(); err != nil {
		logger.Warn("scratch cleanup failed", "dir", ws.Dir, "err", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logx.Discard()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Metadata echoes req as the archive metadata document. Outputs and
// Timestamp are left for the caller.
func Metadata(req compose.Request) archive.Metadata {
	meta := archive.Metadata{
		MemeID:          req.ID,
		Mode:            string(req.Mode()),
		IncludeBranding: req.Branding,
		Project:         req.ProjectName,
		Inputs: archive.Inputs{
			FinalDialogue:  optional(req.Dialogue),
			FinalMusicURL:  optional(req.Music),
			MemeTopText:    req.TopText,
			MemeBottomText: req.BottomText,
		},
	}
	if meta.MemeID == "" {
		meta.MemeID = paths.DefaultSlug
	}
	if req.Mode() == compose.ModeStitch {
		meta.Inputs.Scene1URL = optional(req.Clips[0])
		meta.Inputs.Scene2URL = optional(req.Clips[1])
		meta.Inputs.Scene3URL = optional(req.Clips[2])
	} else if len(req.Clips) > 0 {
		meta.Inputs.FinalStitchVideo = optional(req.Clips[0])
	}
	return meta
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deliver(ws *paths.Workspace, video string, meta archive.Metadata, slug string, opts Options) (string, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output dir: %w", err)
	}

	src := video
	if opts.Archive {
		src = ws.Work(slug + "_pack.zip")
		if err := archive.Write(src, meta, video); err != nil {
			return "", err
		}
	}
	dest := filepath.Join(outDir, filepath.Base(src))
	if err := moveFile(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// moveFile renames src to dest, falling back to a copy through a temp file
// in dest's directory when rename fails, e.g. across filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dest: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp dest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp dest: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp dest: %w", err)
	}
	return nil
}
