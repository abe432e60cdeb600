package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/iliyamo/booksphere/internal/config"
	"github.com/iliyamo/booksphere/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "migrator",
	Short: "Apply or roll back the booksphere schema",
	Long: `migrator manages the booksphere schema using the migrations embedded
in the binary.  The target database is read from the same environment as
the server (DB_DRIVER, DB_HOST, SQLITE_PATH, ...).`,
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.MigrateUp(config.LoadDatabase()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied successfully")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid steps %q", args[0])
			}
			steps = n
		}
		if err := database.MigrateDown(config.LoadDatabase(), steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := database.Migrator(config.LoadDatabase())
		if err != nil {
			return err
		}
		defer m.Close()

		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
		return nil
	},
}

func main() {
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
