package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
)

var (
	metricsOrg  string
	metricsUser string
	metricsDays int
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print participant pipeline metrics and alerts for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := auth.NewIdentity(metricsOrg, metricsUser, "", auth.RoleAdmin)
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.services.Metrics.Collect(cmd.Context(), id, metricsDays)
		if err != nil {
			return fmt.Errorf("collect metrics: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsOrg, "org", "", "organization id")
	metricsCmd.Flags().StringVar(&metricsUser, "user", "", "user id recorded as the caller")
	metricsCmd.Flags().IntVar(&metricsDays, "days", 0, "window in days (default METRICS_DEFAULT_DAYS)")
	_ = metricsCmd.MarkFlagRequired("org")
	_ = metricsCmd.MarkFlagRequired("user")
}
