package main

import (
	"fmt"
	"os"

	"mangle/internal/core/app"
	"mangle/internal/data/history"
	"mangle/internal/ui/report"

	"github.com/spf13/cobra"
)

func newMappingsCmd(root *rootOptions) *cobra.Command {
	var (
		runID  string
		format string
		list   int
		output string
	)
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Export the mapping of a recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := readConfig(root.configPath)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
			if err != nil {
				return err
			}
			defer store.Close()
			a := app.New(cfg, app.WithStore(store))

			if list > 0 {
				runs, err := a.Runs(list)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), report.RunList(runs))
				return nil
			}

			res, err := a.Mappings(runID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return report.WriteMapping(w, f, res)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&runID, "run", "", "Run id; the latest run when empty")
	flags.StringVarP(&format, "format", "f", "text", "Export format: text or yaml")
	flags.IntVar(&list, "list", 0, "List the N most recent runs instead of exporting")
	flags.StringVarP(&output, "output", "o", "", "Write the export to a file instead of stdout")
	return cmd
}
