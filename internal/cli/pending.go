package cli

import (
	"fmt"
	"os"

	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/scanner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newPendingCmd lists media files that still lack a transcript, without
// transcribing anything.
func newPendingCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List media files that have no transcript yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			paths, err := scanner.Pending(app.cfg.WatchDir, media.NewFormatSet(app.cfg.Extensions))
			if err != nil {
				return fmt.Errorf("scan %s: %w", app.cfg.WatchDir, err)
			}

			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending media files.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "File", "Size", "Modified"})
			for i, path := range paths {
				size, modified := "?", "?"
				if info, err := os.Stat(path); err == nil {
					size = humanBytes(info.Size())
					modified = info.ModTime().Format("2006-01-02 15:04")
				}
				t.AppendRow(table.Row{i + 1, path, size, modified})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d pending", len(paths)), "", ""})
			t.Render()
			return nil
		},
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
