package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/script"
	"clipforge/internal/tui"
)

var fontsSample string

func newFontsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fonts",
		Short: "List the font used for each script",
		RunE:  runFonts,
	}
	cmd.Flags().StringVar(&fontsSample, "text", "", "Also report which font a caption would use")
	return cmd
}

type fontRow struct {
	Script   string `json:"script"`
	Path     string `json:"path"`
	Fallback bool   `json:"fallback"`
}

func runFonts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := script.LoadTable(cfg.Fonts.Dir, cfg.Fonts.Files, nil)
	if err != nil {
		return err
	}
	resolver := script.NewResolver(table)

	var rows []fontRow
	for _, s := range script.All() {
		path, ok := table.Path(s)
		if !ok {
			path, _ = table.Path(script.English)
		}
		rows = append(rows, fontRow{Script: string(s), Path: path, Fallback: !ok})
	}

	var sample *script.FontAsset
	if fontsSample != "" {
		asset := resolver.Resolve(fontsSample)
		sample = &asset
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		data, err := json.MarshalIndent(map[string]any{"fonts": rows, "sample": sample}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, tui.HeaderStyle.Render(fmt.Sprintf("%-10s %s", "SCRIPT", "FONT")))
	for _, r := range rows {
		status := "ok"
		if r.Fallback {
			status = "warning"
		}
		fmt.Fprintf(out, "%-10s %s\n", r.Script, tui.StatusStyle(status).Render(r.Path))
	}
	if sample != nil {
		fmt.Fprintf(out, "\n%q → %s (%s)\n", fontsSample, sample.Path, sample.Script)
	}
	return nil
}
