// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		all := slices.Clone(cfg.Sources)
		slices.SortStableFunc(all, func(a, b types.SourceConfig) int { return a.Priority - b.Priority })

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PRIORITY\tSOURCE\tENABLED\tMAX RESULTS\tDELAY\tDOWNLOAD DELAY")
		for _, s := range all {
			fmt.Fprintf(tw, "%d\t%s\t%t\t%d\t%s\t%s\n",
				s.Priority, s.Name, s.Enabled, s.MaxResults, s.Delay, s.DownloadDelay)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
