package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftlogd",
		Short: "Shiftlog daemon and CLI",
		Long:  "Shiftlog daemon for running the API server, ingesting shift logs and managing the vector index",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.WatchCmd())
	rootCmd.AddCommand(admin.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
