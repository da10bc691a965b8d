package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/spf13/cobra"
)

// AskRequest is the chat API request.
type AskRequest struct {
	Question string `json:"question"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	return cli.WithOutput(&cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a question about the ingested shift logs",
		Long:  "Sends the question to /api/chat and prints the answer with the files it drew from.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return domain.ErrEmptyQuestion
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAsk(api, question, outputJSON, cmd.OutOrStdout())
		},
	}, "Answer")
}

func runAsk(api *APIClient, question string, outputJSON bool, w io.Writer) error {
	resp, err := api.Post("/api/chat", AskRequest{Question: question})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer domain.Answer
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		printJSON(w, answer)
		return nil
	}

	fmt.Fprintln(w, answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(w, "  - %s\n", s.Filename)
		}
	}
	return nil
}
