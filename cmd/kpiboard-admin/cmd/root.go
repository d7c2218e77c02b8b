package cmd

import (
	"fmt"

	"kpiboard/internal/config"
	"kpiboard/internal/database"
	"kpiboard/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	version string

	// Global flags
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kpiboard-admin",
	Short: "KPI board administration CLI",
	Long: `kpiboard-admin runs maintenance tasks against the KPI board database.

It applies schema migrations, removes expired share links and manages
user accounts. Connection settings come from the same environment
variables (or .env file) the server reads.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kpiboard-admin %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(userCmd)
}

func newLogger(cfg *config.Config) *logger.Logger {
	level := cfg.LogLevel
	if flagVerbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Format: "text", Output: rootCmd.ErrOrStderr()})
}

// openDB loads configuration and connects to the database. The caller
// closes the returned handle.
func openDB() (*gorm.DB, *logger.Logger, error) {
	cfg := config.Load()
	log := newLogger(cfg)
	db, err := database.Connect(cfg.DSN(), log)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}
