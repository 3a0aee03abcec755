package main

import (
	"fmt"
	"os"

	"github.com/ihabbishara/RAGIncidentApp/internal/cli"
	"github.com/ihabbishara/RAGIncidentApp/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragincidentd",
		Short: "RAG incident daemon",
		Long:  "Daemon that turns incident emails into ServiceNow tickets, enriched with knowledge base context",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
