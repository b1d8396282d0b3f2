package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/docbatch/pkg/model"
)

func newSubmitCmd() *cobra.Command {
	var (
		flagType     string
		flagHandler  string
		flagMethod   string
		flagArgs     string
		flagPriority int
		flagWait     bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one operation to the queue",
		Example: `  docbatch submit --type spreadsheet --handler spreadsheet --method set_value \
      --args '{"cell": "A1", "value": 42}' --priority 5 --wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opArgs map[string]any
			if flagArgs != "" {
				if err := json.Unmarshal([]byte(flagArgs), &opArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			req := model.OperationRequest{
				Type:     model.OperationType(flagType),
				Handler:  flagHandler,
				Method:   flagMethod,
				Args:     opArgs,
				Priority: flagPriority,
			}
			resp, err := client.Post("/api/v1/operations", req)
			if err != nil {
				return fmt.Errorf("submit operation: %w", err)
			}

			var op model.Operation
			if err := json.Unmarshal(resp.Data, &op); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Submitted: %s\n", op.ID)
			if !flagWait {
				fmt.Printf("  Status: %s\n", op.Status)
				return nil
			}

			resp, err = client.Get("/api/v1/operations/" + op.ID + "/wait")
			if err != nil {
				return fmt.Errorf("wait for operation: %w", err)
			}
			if err := json.Unmarshal(resp.Data, &op); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printOperation(&op)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagType, "type", "spreadsheet", "Operation type (spreadsheet, presentation, textdoc)")
	cmd.Flags().StringVar(&flagHandler, "handler", "", "Handler name (required)")
	cmd.Flags().StringVar(&flagMethod, "method", "", "Method name (required)")
	cmd.Flags().StringVar(&flagArgs, "args", "", "Method arguments as a JSON object")
	cmd.Flags().IntVar(&flagPriority, "priority", 0, "Priority (higher runs first)")
	cmd.Flags().BoolVar(&flagWait, "wait", false, "Block until the operation finishes")
	cmd.MarkFlagRequired("handler")
	cmd.MarkFlagRequired("method")

	return cmd
}

func printOperation(op *model.Operation) {
	fmt.Printf("Operation: %s\n", op.ID)
	fmt.Printf("  Type:     %s\n", op.Type)
	fmt.Printf("  Handler:  %s.%s\n", op.Handler, op.Method)
	fmt.Printf("  Priority: %d\n", op.Priority)
	fmt.Printf("  Status:   %s\n", op.Status)
	if op.Result != nil {
		result, _ := json.Marshal(op.Result)
		fmt.Printf("  Result:   %s\n", result)
	}
	if op.Error != "" {
		fmt.Printf("  Error:    %s\n", op.Error)
	}
	if d := op.Duration(); d > 0 {
		fmt.Printf("  Duration: %s\n", d)
	}
}
