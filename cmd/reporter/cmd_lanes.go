package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lanesCmd = &cobra.Command{
	Use:   "lanes",
	Short: "Resolve and print the configured lanes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		lanes, _, err := a.initSources(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tNAME\tWORKFLOW ID")
		for _, l := range lanes {
			wid := "-"
			if l.WorkflowID != 0 {
				wid = fmt.Sprint(l.WorkflowID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.Kind, l.DisplayName, wid)
		}
		return tw.Flush()
	},
}
