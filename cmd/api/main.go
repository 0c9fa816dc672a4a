package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd serves the API when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "classifieds",
	Short: "Classifieds marketplace API",
	Long: `Classifieds marketplace API server.

Commands:
  serve    - Run pending migrations and start the HTTP server (default)
  migrate  - Manage the database schema`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
