package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"clipforge/internal/compose"
	"clipforge/internal/errs"
	"clipforge/internal/paths"
	"clipforge/internal/pipeline"
	"clipforge/internal/tui"
)

var (
	renderFlags      requestFlags
	renderOutDir     string
	renderNoArchive  bool
	renderNoProgress bool
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one meme video and package it",
		Example: `  clipforge render --clip https://cdn.example.com/v.mp4 --top "when the build" --bottom "finally passes"
  clipforge render --clip s1.mp4 --clip s2.mp4 --clip s3.mp4 --music song.mp3 --no-archive
  clipforge render --request meme.json --out ./renders`,
		RunE: runRender,
	}

	renderFlags.register(cmd)
	cmd.Flags().StringVar(&renderOutDir, "out", ".", "Directory that receives the output")
	cmd.Flags().BoolVar(&renderNoArchive, "no-archive", false, "Deliver the bare .mp4 instead of <id>_pack.zip")
	cmd.Flags().BoolVar(&renderNoProgress, "no-progress", false, "Disable interactive progress output")

	return cmd
}

type renderJSONResult struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Output    string `json:"output,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func runRender(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := renderFlags.build(cmd)
	if err != nil {
		return err
	}
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	runner := env.runner(nil)

	archive := env.cfg.Output.ArchiveValue()
	if cmd.Flags().Changed("no-archive") {
		archive = !renderNoArchive
	}
	opts := pipeline.Options{OutDir: renderOutDir, Archive: archive}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, renderNoProgress, outputJSON)

	var res pipeline.Result
	switch mode {
	case tui.ModeTUI:
		model := tui.NewStageModel(fmt.Sprintf("%s (%s)", paths.Slug(req.ID), req.Mode()), pipeline.Stages())
		var runErr error
		tuiErr := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) {
			opts.Reporter = tui.NewStageReporter(send)
			res, runErr = runner.Run(ctx, req, opts)
			if runErr != nil {
				send(tui.ErrorMsg{Err: runErr})
			}
		})
		err = runErr
		if err == nil {
			err = tuiErr
		}
	case tui.ModePlain:
		opts.Reporter = tui.LineReporter{Printf: func(format string, args ...any) {
			fmt.Fprintf(out, format, args...)
		}}
		res, err = runner.Run(ctx, req, opts)
	default:
		res, err = runner.Run(ctx, req, opts)
	}

	if outputJSON {
		if werr := writeRenderJSON(out, req, res, err); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	writeRenderSummary(out, res)
	return nil
}

func writeRenderJSON(w io.Writer, req compose.Request, res pipeline.Result, err error) error {
	payload := renderJSONResult{
		ID:        res.ID,
		Mode:      string(req.Mode()),
		Output:    res.Path,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if err != nil {
		payload.Error = err.Error()
		payload.ErrorKind = errs.KindOf(err).String()
	}
	data, merr := json.MarshalIndent(payload, "", "  ")
	if merr != nil {
		return fmt.Errorf("encode json: %w", merr)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func writeRenderSummary(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "rendered %s → %s (%s)\n", res.Mode, res.Path, res.Elapsed.Round(time.Millisecond))
}
