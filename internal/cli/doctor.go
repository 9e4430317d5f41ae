package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/script"
	"clipforge/internal/tools"
	"clipforge/internal/tui"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that tools, fonts and scratch space are ready",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, cfgErr := config.Load(configPath)
	checks := []healthCheck{checkConfig(cfg, cfgErr)}
	if cfgErr == nil {
		checks = append(checks,
			checkTools(cmd.Context(), cfg.Tools),
			checkFonts(cfg.Fonts),
			checkScratch(cfg.Scratch.Root),
		)
	}
	return writeDoctorResult(cmd, checks)
}

func checkTools(ctx context.Context, tc config.ToolsConfig) healthCheck {
	var found, missing []string
	for _, st := range tools.Detect(ctx, tc) {
		if !st.Satisfied {
			missing = append(missing, st.Tool)
			continue
		}
		found = append(found, strings.TrimSpace(st.Tool+" "+st.Version))
	}
	if len(missing) > 0 {
		return healthCheck{Name: "Tools", Status: "error", Summary: "missing or too old: " + strings.Join(missing, ", ")}
	}
	return healthCheck{Name: "Tools", Status: "ok", Summary: strings.Join(found, ", ")}
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	counts := map[string]int{}
	for _, v := range cfg.Validate() {
		counts[v.Level]++
	}
	errors, warnings := counts["error"], counts["warning"]

	summary := configPath
	if _, err := os.Stat(configPath); err != nil {
		summary = "defaults (no " + configPath + ")"
	}

	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkFonts(fc config.FontsConfig) healthCheck {
	table, err := script.LoadTable(fc.Dir, fc.Files, nil)
	if err != nil {
		return healthCheck{Name: "Fonts", Status: "error", Summary: err.Error()}
	}
	found := len(table.Scripts())
	want := len(script.All())
	if found < want {
		return healthCheck{
			Name:    "Fonts",
			Status:  "warning",
			Summary: fmt.Sprintf("%d of %d scripts have fonts; the rest fall back to english", found, want),
		}
	}
	return healthCheck{Name: "Fonts", Status: "ok", Summary: fmt.Sprintf("%d scripts", found)}
}

func checkScratch(root string) healthCheck {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return healthCheck{Name: "Scratch", Status: "error", Summary: err.Error()}
	}
	probe, err := os.CreateTemp(root, ".doctor-*")
	if err != nil {
		return healthCheck{Name: "Scratch", Status: "error", Summary: fmt.Sprintf("%s not writable", root)}
	}
	probe.Close()
	os.Remove(probe.Name())
	abs, _ := filepath.Abs(root)
	return healthCheck{Name: "Scratch", Status: "ok", Summary: abs}
}

func writeDoctorResult(cmd *cobra.Command, checks []healthCheck) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(checks)
	}

	labels := map[string]string{"ok": "OK", "warning": "WARN", "error": "ERROR"}
	fmt.Fprintln(out, tui.HeaderStyle.Render("clipforge doctor"))
	for _, c := range checks {
		status := tui.StatusStyle(c.Status).Render(fmt.Sprintf("%-5s", labels[c.Status]))
		fmt.Fprintf(out, "  %-8s %s  %s\n", c.Name, status, c.Summary)
	}
	return nil
}
