package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/curioai/internal/cli"
	"github.com/cloo-solutions/curioai/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "curiod",
		Short: "Curio daemon and admin CLI",
		Long:  "Curio daemon for running the API server and running maintenance passes against the database",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ScanCmd())
	rootCmd.AddCommand(admin.CleanupCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
