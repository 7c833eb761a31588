package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reconcileOlderThan time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fail enrichment lookups whose callback never arrived, across all organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.services.Enrichment.Reconcile(cmd.Context(), nil, reconcileOlderThan)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "failed %d stale enrichment(s)\n", n)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileOlderThan, "older-than", 0, "pending age before a lookup is failed (default RECONCILE_PENDING_AFTER)")
}
