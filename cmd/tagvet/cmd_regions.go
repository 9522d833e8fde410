package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var regionsNoCache bool

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Show the usable scan regions",
	Long: `Regions resolves the current set of usable scan regions the same way
a scan would: opted-out regions are excluded, and results are served from
the region-list cache unless --no-cache is given.`,
	RunE: runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().BoolVar(&regionsNoCache, "no-cache", false, "Force a fresh discovery call")
}

func runRegions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, "")
	if err != nil {
		return err
	}
	defer rt.close()

	if regionsNoCache {
		rt.dir.Invalidate()
	}

	res, err := rt.dir.ResolveTargets(ctx, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Usable regions: %d (source: %s)\n", len(res.Targets), res.Source)
	if res.Degraded {
		fmt.Println("Warning: region discovery degraded, list may be incomplete")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION")
	for _, endpoint := range res.Targets {
		fmt.Fprintln(tw, endpoint)
	}
	return tw.Flush()
}
