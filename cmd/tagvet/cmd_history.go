package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scan results",
	Long:  `History lists recorded scans, newest first, with their compliance scores.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), "")
	if err != nil {
		return err
	}
	defer rt.close()

	entries := rt.history.Recent(historyLimit)
	if len(entries) == 0 {
		fmt.Println("No scans recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRECORDED\tSCORE\tRESOURCES\tVIOLATIONS\tCOST GAP\tREGIONS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.1f%%\t%d\t%d\t$%.2f\t%d/%d failed\n",
			e.Seq, e.RecordedAt.Format("2006-01-02 15:04:05"),
			e.ComplianceScore*100, e.TotalResources, e.ViolationCount,
			e.CostGap, e.RegionsFailed, e.RegionsAttempted)
	}
	return tw.Flush()
}
