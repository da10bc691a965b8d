package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/spf13/cobra"
)

// HealthStatus mirrors the /api/health payload.
type HealthStatus struct {
	Status       string `json:"status"`
	IndexReady   bool   `json:"index_ready"`
	Collection   string `json:"collection"`
	HasDocuments bool   `json:"has_documents"`
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	return cli.WithOutput(&cobra.Command{
		Use:   "health",
		Short: "Show server and index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runHealth(api, outputJSON, cmd.OutOrStdout())
		},
	}, "HealthStatus")
}

func runHealth(api *APIClient, outputJSON bool, w io.Writer) error {
	resp, err := api.Get("/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return fmt.Errorf("failed to parse health status: %w", err)
	}

	if outputJSON {
		printJSON(w, status)
		return nil
	}

	fmt.Fprintf(w, "Server:     %s (%s)\n", status.Status, api.BaseURL())
	fmt.Fprintf(w, "Collection: %s\n", status.Collection)
	fmt.Fprintf(w, "Index:      %s\n", readiness(status.IndexReady))
	fmt.Fprintf(w, "Documents:  %s\n", yesNo(status.HasDocuments))
	return nil
}

func readiness(ready bool) string {
	if ready {
		return "ready"
	}
	return "not ready"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
