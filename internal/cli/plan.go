package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var planFlags requestFlags

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Fetch and probe the inputs, then print the ffmpeg jobs a render would run",
		RunE:  runPlan,
	}
	planFlags.register(cmd)
	return cmd
}

type planJSONJob struct {
	Stage   int      `json:"stage"`
	Name    string   `json:"name"`
	Output  string   `json:"output"`
	Args    []string `json:"args"`
	Command string   `json:"command"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := planFlags.build(cmd)
	if err != nil {
		return err
	}
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	runner := env.runner(nil)

	plan, err := runner.Plan(ctx, req)
	if err != nil {
		return err
	}

	binary := runner.Engine.Binary
	out := cmd.OutOrStdout()
	if outputJSON {
		jobs := []planJSONJob{}
		for i, stage := range plan.Schedule.Stages {
			for _, job := range stage {
				jobs = append(jobs, planJSONJob{
					Stage:   i + 1,
					Name:    job.Name,
					Output:  job.Output,
					Args:    job.Args,
					Command: job.Command(binary),
				})
			}
		}
		data, err := json.MarshalIndent(map[string]any{
			"mode":  plan.Mode,
			"clips": plan.Facts.Clips,
			"jobs":  jobs,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	faint := lipgloss.NewStyle().Faint(true).Inline(true)

	fmt.Fprintln(out, bold.Render("MODE:")+" "+string(plan.Mode))
	for i, info := range plan.Facts.Clips {
		audio := "no audio"
		if info.HasAudio {
			audio = "audio"
		}
		fmt.Fprintf(out, "  clip %d: %dx%d %.2fs %s\n", i+1, info.Width, info.Height, info.DurationSeconds, audio)
	}
	for i, stage := range plan.Schedule.Stages {
		fmt.Fprintln(out, bold.Render(fmt.Sprintf("STAGE %d", i+1))+faint.Render(fmt.Sprintf(" (%d jobs)", len(stage))))
		for _, job := range stage {
			if job.ListFile != "" {
				fmt.Fprintf(out, "  # %s:\n", job.ListFile)
				fmt.Fprint(out, indent(job.ListBody, "  #   "))
			}
			fmt.Fprintf(out, "  %s\n", job.Command(binary))
		}
	}
	return nil
}

func indent(body, prefix string) string {
	var out string
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' {
			out += prefix + body[start:i+1]
			start = i + 1
		}
	}
	if start < len(body) {
		out += prefix + body[start:] + "\n"
	}
	return out
}
