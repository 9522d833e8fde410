package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tagvet/tagvet/orchestrator"
	"github.com/tagvet/tagvet/types"
)

var (
	scanKinds     []string
	scanEndpoints []string
	scanSeverity  string
	scanNoCache   bool
	scanOutput    string
	scanPolicy    string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Audit resource tags across all usable regions",
	Long: `Scan enumerates the requested resource kinds in every usable region,
checks each resource against the tag policy, and prints the aggregated
compliance report. Partial region failures are reported inside the result;
the command fails only when the request is invalid or every region failed.`,
	Example: `  tagvet scan                                   # All kinds, all regions
  tagvet scan --kinds ec2,rds                   # Only EC2 and RDS
  tagvet scan --endpoints us-east-1,eu-west-1   # Explicit region subset
  tagvet scan --severity high --output json     # High findings as JSON
  tagvet scan --no-cache                        # Refresh region discovery`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanKinds, "kinds", nil, "Resource kinds to audit (default: all)")
	scanCmd.Flags().StringSliceVar(&scanEndpoints, "endpoints", nil, "Explicit region subset (default: all usable)")
	scanCmd.Flags().StringVar(&scanSeverity, "severity", types.SeverityLow, "Minimum violation severity to report (low, medium, high)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Bypass the region-list cache for this scan")
	scanCmd.Flags().StringVar(&scanOutput, "output", "table", "Output format (table, json)")
	scanCmd.Flags().StringVar(&scanPolicy, "policy", "", "Tag policy file (default: built-in owner/env policy)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOutput != "table" && scanOutput != "json" {
		return fmt.Errorf("unknown output format %q", scanOutput)
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, scanPolicy)
	if err != nil {
		return err
	}
	defer rt.close()

	req := types.ScanRequest{
		Kinds:       scanKinds,
		Severity:    scanSeverity,
		BypassCache: scanNoCache,
	}
	if len(req.Kinds) == 0 {
		req.Kinds = types.AllKinds()
	}
	if cmd.Flags().Changed("endpoints") {
		req.EndpointFilter = scanEndpoints
	}

	result, scanErr := rt.orch.Scan(ctx, req)
	var allFailed *orchestrator.AllRegionsFailedError
	if scanErr != nil && !errors.As(scanErr, &allFailed) {
		return scanErr
	}

	if _, err := rt.history.Append(result, req); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record scan history: %v\n", err)
	}

	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		renderResult(os.Stdout, result)
	}

	// All-regions-failed still prints the partial result above, then exits
	// non-zero.
	return scanErr
}

func renderResult(w io.Writer, result *types.AggregatedResult) {
	meta := result.RegionMetadata

	fmt.Fprintf(w, "Compliance score: %.1f%%\n", result.ComplianceScore*100)
	fmt.Fprintf(w, "Resources:        %d total, %d compliant\n", result.TotalResources, result.CompliantResources)
	fmt.Fprintf(w, "Violations:       %d\n", len(result.Violations))
	fmt.Fprintf(w, "Cost gap:         $%.2f/month\n", result.CostGap)
	fmt.Fprintf(w, "Regions:          %d attempted, %d succeeded, %d failed, %d skipped\n",
		meta.Attempted, len(meta.Succeeded), len(meta.Failed), len(meta.Skipped))
	if meta.DiscoveryDegraded {
		fmt.Fprintln(w, "Warning:          region discovery degraded, endpoint list may be incomplete")
	}

	if len(result.PerRegionSummary) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REGION\tSTATUS\tRESOURCES\tVIOLATIONS\tCOST GAP\tDURATION")
		for _, endpoint := range sortedKeys(result.PerRegionSummary) {
			s := result.PerRegionSummary[endpoint]
			status := "ok"
			if !s.Success {
				status = "failed: " + s.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t$%.2f\t%dms\n",
				endpoint, status, s.TotalCount, s.ViolationCount, s.CostGap, s.DurationMs)
		}
		tw.Flush()
	}

	if len(result.Violations) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tRESOURCE\tREGION\tMISSING TAG\tSEVERITY")
		for _, v := range result.Violations {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Kind, v.ResourceID, v.Endpoint, v.TagKey, v.Severity)
		}
		tw.Flush()
	}
}

func sortedKeys(m map[string]types.RegionalSummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
