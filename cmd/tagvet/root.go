package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "tagvet",
		Short: "Tag compliance auditor",
		Long: `TagVet - Tag Compliance Auditor

TagVet scans cloud resources across every usable region, checks their tags
against a declarative policy, and reports a compliance score, the violations
found, and the monthly spend attached to non-compliant resources.`,
		Version: version,
	}
)

// Execute runs the root command with signal-aware cancellation.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`TagVet {{.Version}} - Tag Compliance Auditor
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to tagvet.yaml (defaults apply when omitted)")
}
