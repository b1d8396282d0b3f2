package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/docbatch/pkg/model"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/queue/stats")
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			var stats model.QueueStats
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Queue (max %d concurrent):\n", stats.MaxConcurrent)
			fmt.Printf("  Total:     %d\n", stats.Total)
			fmt.Printf("  Pending:   %d (queue length %d)\n", stats.Pending, stats.QueueLength)
			fmt.Printf("  Running:   %d\n", stats.Running)
			fmt.Printf("  Completed: %d\n", stats.Completed)
			fmt.Printf("  Failed:    %d\n", stats.Failed)
			fmt.Printf("  Cancelled: %d\n", stats.Cancelled)
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove finished operations from queue memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/queue/clear", nil)
			if err != nil {
				return fmt.Errorf("clear queue: %w", err)
			}

			var result map[string]int
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Printf("Removed %d finished operations\n", result["removed"])
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "audit [operation_id]",
		Short: "Show the audit trail of finished operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/audit/?limit=%d", flagLimit)
			if len(args) == 1 {
				path = "/api/v1/audit/" + args[0]
			}
			resp, err := client.Get(path)
			if err != nil {
				return fmt.Errorf("get audit trail: %w", err)
			}

			var entries []struct {
				OperationID string `json:"operation_id"`
				Handler     string `json:"handler"`
				Method      string `json:"method"`
				Status      string `json:"status"`
				Error       string `json:"error"`
				RecordedAt  string `json:"recorded_at"`
			}
			if err := json.Unmarshal(resp.Data, &entries); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			for _, e := range entries {
				fmt.Printf("%s  %-9s  %s.%s", e.RecordedAt, e.Status, e.Handler, e.Method)
				if e.Error != "" {
					fmt.Printf("  (%s)", e.Error)
				}
				fmt.Printf("  %s\n", e.OperationID)
			}
			if resp.Pagination != nil {
				fmt.Printf("%d of %d entries\n", len(entries), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 50, "Maximum entries to list")
	return cmd
}
