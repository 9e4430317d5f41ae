package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/errs"
	"clipforge/internal/filtergraph"
)

// diagnosticTail is how much of a failed tool's stderr is kept on the error.
const diagnosticTail = 3000

// OutputProfile is the encoding of the final output file.
type OutputProfile struct {
	VideoCodec       string
	Preset           string
	CRF              int
	AudioCodec       string
	AudioBitrateKbps int
}

// DefaultOutputProfile is libx264/fast/18 with 192k AAC audio.
func DefaultOutputProfile() OutputProfile {
	return OutputProfile{
		VideoCodec:       "libx264",
		Preset:           "fast",
		CRF:              18,
		AudioCodec:       "aac",
		AudioBitrateKbps: 192,
	}
}

// Job is one ffmpeg invocation.
type Job struct {
	// Name is the node label the job produces, or "final".
	Name   string
	Args   []string
	Output string
	// ListFile, when set, is written with ListBody before the job runs.
	ListFile string
	ListBody string
}

// Command renders the job as a shell-like line for display.
func (j Job) Command(binary string) string {
	parts := make([]string, 0, len(j.Args)+1)
	parts = append(parts, binary)
	for _, a := range j.Args {
		if a == "" || strings.ContainsAny(a, " '\"[];,\\$") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Schedule is a compiled graph. Jobs within a stage are independent; stages
// run in order and the last stage holds the single final job.
type Schedule struct {
	Stages [][]Job
}

// Jobs returns every job in execution order.
func (s Schedule) Jobs() []Job {
	var out []Job
	for _, stage := range s.Stages {
		out = append(out, stage...)
	}
	return out
}

// Engine executes processing graphs with ffmpeg.
type Engine struct {
	Runner  Runner
	Binary  string
	Profile OutputProfile
	Logger  *slog.Logger
	// LogDir, when set, receives one stderr log per job.
	LogDir string
}

// NewEngine returns an engine for the ffmpeg binary at path.
func NewEngine(runner Runner, path string, profile OutputProfile, logger *slog.Logger) *Engine {
	if runner == nil {
		runner = CmdRunner{Logger: logger}
	}
	if path == "" {
		path = "ffmpeg"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{Runner: runner, Binary: path, Profile: profile, Logger: logger}
}

// Compile turns g into ffmpeg jobs. files maps input roles to local paths,
// intermediate clips are written under workDir and the final job writes out.
func (e *Engine) Compile(g *filtergraph.Graph, files map[string]string, workDir, out string) (Schedule, error) {
	if g == nil {
		return Schedule{}, errs.Invariant("nil graph")
	}
	if err := g.Validate(); err != nil {
		return Schedule{}, err
	}

	sources := make(map[filtergraph.Label]string, len(g.Inputs)+len(g.Nodes))
	for _, in := range g.Inputs {
		path, ok := files[in.Role]
		if !ok || strings.TrimSpace(path) == "" {
			return Schedule{}, errs.Invariant("no file for input %s (%s)", in.Label, in.Role)
		}
		sources[in.Label] = path
	}

	depth := make(map[filtergraph.Label]int)
	var stages [][]Job
	for _, n := range g.ClipNodes() {
		d := 0
		for _, in := range n.Inputs {
			if dd := depth[in.Base()]; dd > d {
				d = dd
			}
		}
		depth[n.Label] = d + 1

		output := filepath.Join(workDir, string(n.Label)+".mp4")
		job, err := e.clipJob(n, sources, workDir, output)
		if err != nil {
			return Schedule{}, err
		}
		sources[n.Label] = output
		for len(stages) < d+1 {
			stages = append(stages, nil)
		}
		stages[d] = append(stages[d], job)
	}

	final, err := e.finalJob(g, sources, out)
	if err != nil {
		return Schedule{}, err
	}
	stages = append(stages, []Job{final})
	return Schedule{Stages: stages}, nil
}

// Execute compiles g and runs it to completion. The first failing job
// cancels its siblings and is returned as an EngineError.
func (e *Engine) Execute(ctx context.Context, g *filtergraph.Graph, files map[string]string, workDir, out string) error {
	sched, err := e.Compile(g, files, workDir, out)
	if err != nil {
		return err
	}
	return e.Run(ctx, sched)
}

// Run executes a compiled schedule.
func (e *Engine) Run(ctx context.Context, sched Schedule) error {
	for i, stage := range sched.Stages {
		start := time.Now()
		group, gctx := errgroup.WithContext(ctx)
		for _, job := range stage {
			group.Go(func() error {
				return e.runJob(gctx, job)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
		e.Logger.Debug("stage complete", "stage", i, "jobs", len(stage), "elapsed", time.Since(start))
	}
	return nil
}

func (e *Engine) runJob(ctx context.Context, job Job) error {
	if job.ListFile != "" {
		if err := os.WriteFile(job.ListFile, []byte(job.ListBody), 0o644); err != nil {
			return fmt.Errorf("write concat list: %w", err)
		}
	}

	opts := RunOptions{}
	if e.LogDir != "" {
		logFile, err := os.Create(filepath.Join(e.LogDir, job.Name+".log"))
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		opts.Stderr = logFile
	}

	e.Logger.Debug("ffmpeg", "job", job.Name, "output", job.Output)
	res, err := e.Runner.Run(ctx, e.Binary, job.Args, opts)
	if err != nil {
		_ = os.Remove(job.Output)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.Logger.Error("ffmpeg failed", "job", job.Name, "kind", errs.KindEngine.String(), "err", err)
		return fmt.Errorf("job %s: %w", job.Name, errs.Engine("ffmpeg", err, res.Stderr, diagnosticTail))
	}
	return nil
}

func (e *Engine) clipJob(n filtergraph.Node, sources map[filtergraph.Label]string, workDir, output string) (Job, error) {
	in := make([]string, len(n.Inputs))
	for i, l := range n.Inputs {
		path, ok := sources[l.Base()]
		if !ok {
			return Job{}, errs.Invariant("clip node %s reads unknown %s", n.Label, l)
		}
		in[i] = path
	}
	job := Job{Name: string(n.Label), Output: output}

	switch p := n.Params.(type) {
	case filtergraph.NormalizeClip:
		job.Args = normalizeArgs(in[0], p, output)
	case filtergraph.TrimParams:
		args := []string{"-hide_banner", "-y", "-i", in[0], "-t", formatSeconds(p.Seconds),
			"-map", "0:v:0", "-map", "0:a:0?"}
		if p.StreamCopy {
			args = append(args, "-c", "copy")
		} else {
			args = append(args, e.videoArgs()...)
			args = append(args, e.audioArgs()...)
		}
		job.Args = append(args, output)
	case filtergraph.ConcatParams:
		job.ListFile = filepath.Join(workDir, string(n.Label)+".txt")
		job.ListBody = concatList(in)
		args := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", job.ListFile}
		if p.StreamCopy {
			args = append(args, "-c", "copy")
		} else {
			args = append(args, e.videoArgs()...)
			args = append(args, e.audioArgs()...)
		}
		job.Args = append(args, output)
	default:
		return Job{}, errs.Invariant("no clip job for %s node %s", n.Kind(), n.Label)
	}
	return job, nil
}

func normalizeArgs(input string, p filtergraph.NormalizeClip, output string) []string {
	prof := p.Profile
	args := []string{"-hide_banner", "-y", "-i", input}
	if p.AddSilence {
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", fallback(prof.ChannelLayout, "stereo"), fallbackInt(prof.SampleRate, 48000)))
	}

	var filters []string
	if prof.Width > 0 && prof.Height > 0 {
		filters = append(filters,
			fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=1", prof.Width, prof.Height),
			fmt.Sprintf("pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2:color=black", prof.Width, prof.Height),
			"setsar=1",
		)
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	if p.AddSilence {
		args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "0:a:0?")
	}
	if prof.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(prof.FPS))
	}
	args = append(args,
		"-c:v", fallback(prof.VideoCodec, "libx264"),
		"-preset", fallback(prof.Preset, "fast"),
		"-crf", strconv.Itoa(prof.CRF),
		"-pix_fmt", fallback(prof.PixelFormat, "yuv420p"),
		"-c:a", fallback(prof.AudioCodec, "aac"),
		"-b:a", fmt.Sprintf("%dk", fallbackInt(prof.AudioBitrateKbps, 192)),
		"-ar", strconv.Itoa(fallbackInt(prof.SampleRate, 48000)),
		"-ac", strconv.Itoa(channels(prof.ChannelLayout)),
		output,
	)
	return args
}

func (e *Engine) finalJob(g *filtergraph.Graph, sources map[filtergraph.Label]string, out string) (Job, error) {
	streamNodes := g.StreamNodes()
	produced := make(map[filtergraph.Label]bool, len(streamNodes))
	for _, n := range streamNodes {
		produced[n.Label] = true
	}

	var inputs []string
	index := make(map[filtergraph.Label]int)
	spec := func(l filtergraph.Label) (string, error) {
		base := l.Base()
		i, ok := index[base]
		if !ok {
			path, known := sources[base]
			if !known {
				return "", errs.Invariant("final job reads unknown %s", l)
			}
			i = len(inputs)
			index[base] = i
			inputs = append(inputs, path)
		}
		sel := l.Selector()
		if sel == "" {
			if in, ok := g.Input(base); ok && in.Media.Stream() {
				sel = in.Media
			} else {
				return "", errs.Invariant("clip reference %s needs a stream selector", l)
			}
		}
		if sel == filtergraph.MediaAudio {
			return strconv.Itoa(i) + ":a", nil
		}
		return strconv.Itoa(i) + ":v", nil
	}

	graph, err := filtergraph.Serialize(streamNodes, spec)
	if err != nil {
		return Job{}, err
	}

	var maps []string
	mapOf := func(l filtergraph.Label, optional bool) error {
		if produced[l] {
			maps = append(maps, "-map", "["+string(l)+"]")
			return nil
		}
		s, err := spec(l)
		if err != nil {
			return err
		}
		if optional {
			s += "?"
		}
		maps = append(maps, "-map", s)
		return nil
	}
	if err := mapOf(g.Outputs.Video, false); err != nil {
		return Job{}, err
	}
	if g.Outputs.Audio != "" {
		if err := mapOf(g.Outputs.Audio, g.Outputs.AudioCopy); err != nil {
			return Job{}, err
		}
	}

	args := []string{"-hide_banner", "-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	if graph != "" {
		args = append(args, "-filter_complex", graph)
	}
	args = append(args, maps...)
	args = append(args, e.videoArgs()...)
	switch {
	case g.Outputs.Audio == "":
		args = append(args, "-an")
	case g.Outputs.AudioCopy:
		args = append(args, "-c:a", "copy")
	default:
		args = append(args, e.audioArgs()...)
	}
	if d := g.Outputs.DurationSeconds; d > 0 {
		args = append(args, "-t", formatSeconds(d))
	}
	args = append(args, "-movflags", "+faststart", out)
	return Job{Name: "final", Args: args, Output: out}, nil
}

func (e *Engine) videoArgs() []string {
	p := e.Profile
	return []string{
		"-c:v", fallback(p.VideoCodec, "libx264"),
		"-preset", fallback(p.Preset, "fast"),
		"-crf", strconv.Itoa(p.CRF),
	}
}

func (e *Engine) audioArgs() []string {
	p := e.Profile
	return []string{
		"-c:a", fallback(p.AudioCodec, "aac"),
		"-b:a", fmt.Sprintf("%dk", fallbackInt(p.AudioBitrateKbps, 192)),
	}
}

// concatList is the concat demuxer script for paths.
func concatList(paths []string) string {
	var sb strings.Builder
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		sb.WriteString("file '" + strings.ReplaceAll(p, "'", `'\''`) + "'\n")
	}
	return sb.String()
}

func channels(layout string) int {
	switch strings.ToLower(strings.TrimSpace(layout)) {
	case "mono":
		return 1
	case "5.1":
		return 6
	default:
		return 2
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func fallbackInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
