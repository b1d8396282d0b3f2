package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/docbatch/pkg/model"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <operation_id>",
		Short: "Check the status of an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/operations/" + args[0])
			if err != nil {
				return fmt.Errorf("get operation: %w", err)
			}

			var op model.Operation
			if err := json.Unmarshal(resp.Data, &op); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printOperation(&op)
			return nil
		},
	}
}

func newWaitCmd() *cobra.Command {
	var flagTimeout int

	cmd := &cobra.Command{
		Use:   "wait <operation_id>",
		Short: "Block until an operation finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/operations/" + args[0] + "/wait"
			if flagTimeout > 0 {
				path = fmt.Sprintf("%s?timeout=%d", path, flagTimeout)
			}
			resp, err := client.Get(path)
			if err != nil {
				return fmt.Errorf("wait for operation: %w", err)
			}

			var op model.Operation
			if err := json.Unmarshal(resp.Data, &op); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printOperation(&op)
			return nil
		},
	}

	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Give up after this many seconds (0 waits forever)")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <operation_id>",
		Short: "Cancel a pending or running operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Delete("/api/v1/operations/" + args[0])
			if err != nil {
				return fmt.Errorf("cancel operation: %w", err)
			}

			var op model.Operation
			if err := json.Unmarshal(resp.Data, &op); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Printf("Cancelled: %s\n", op.ID)
			return nil
		},
	}
}
