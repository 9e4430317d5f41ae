package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clipforge/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show the resolved ffmpeg and ffprobe binaries",
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	statuses := tools.Detect(cmd.Context(), cfg.Tools)

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStatusTable(cmd, statuses)
	return nil
}

func printStatusTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		cmd.Println("(no tool statuses)")
		return
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSOURCE\tVERSION\tMIN\tOK\tPATH")
	for _, st := range statuses {
		ok := "no"
		if st.Satisfied {
			ok = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.Tool, nonEmpty(string(st.Source)), nonEmpty(st.Version), st.Minimum, ok, nonEmpty(st.Path))
	}
	tw.Flush()

	for _, st := range statuses {
		if st.Error == "" {
			continue
		}
		cmd.Printf("%s: %s\n", st.Tool, st.Error)
		for _, hint := range st.Hints {
			cmd.Printf("  hint: %s\n", hint)
		}
	}
}

func nonEmpty(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
