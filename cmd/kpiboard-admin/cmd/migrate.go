package cmd

import (
	"kpiboard/internal/database"

	"github.com/spf13/cobra"
)

var flagSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE:  runMigrateDown,
}

func init() {
	migrateDownCmd.Flags().IntVar(&flagSteps, "steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, log, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.MigrateUp(db, log)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	db, log, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.MigrateDown(db, flagSteps, log)
}
