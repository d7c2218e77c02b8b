package cmd

import (
	"context"
	"fmt"
	"time"

	"kpiboard/internal/clock"
	"kpiboard/internal/database"
	"kpiboard/internal/repository"
	"kpiboard/internal/sharelink"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-share-links",
	Short: "Delete expired share links once",
	Long: `Deletes every share link whose expiry has passed. The server runs the
same cleanup on SHARE_CLEANUP_SCHEDULE; this command is for ad hoc runs.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	db, log, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	links := sharelink.NewService(repository.NewShareTokenRepository(db), nil, clock.Real(), nil, sharelink.Config{}, log)
	cleaner := sharelink.NewCleaner(links, "", log)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	n, err := cleaner.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired share link(s).\n", n)
	return nil
}
