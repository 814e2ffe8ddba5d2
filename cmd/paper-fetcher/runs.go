// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetcher/internal/ledger"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or the outcomes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := ledger.OpenStore(filepath.Join(cfg.OutputDir, ledger.DBFile))
		if err != nil {
			return err
		}
		defer store.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		if len(args) == 1 {
			outcomes, err := store.Outcomes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(outcomes) == 0 {
				return fmt.Errorf("no outcomes for run %s", args[0])
			}
			fmt.Fprintln(tw, "STATE\tSOURCE\tATTEMPTS\tTITLE")
			for _, o := range outcomes {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", o.State, o.ChosenSource, o.Attempts, o.Title)
			}
			return tw.Flush()
		}

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tDOWNLOADED\tSKIPPED\tFAILED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
				r.RunID, r.StartedAt.Local().Format(time.DateTime),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.Counts.Downloaded, r.Counts.SkippedExisting, r.Counts.Failures())
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().StringP("output", "o", "", "output directory holding ledger.db (default downloads)")
	rootCmd.AddCommand(runsCmd)
}
