package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simbridge/simbridge/pkg/stores"
)

func newSessionsCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long: `Sessions lists the controller sessions stored in the session database,
newest first, with their recorded frame counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Recorder.Path = dbPath
			}

			ctx := cmd.Context()
			store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Recorder.Path})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			sessions, err := store.ListSessions(ctx, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(sessions)
			}
			if len(sessions) == 0 {
				fmt.Println("no recorded sessions")
				return nil
			}
			for _, s := range sessions {
				frames, err := store.CountFrames(ctx, s.ID)
				if err != nil {
					return err
				}
				build := s.BuildVersion
				if build == "" {
					build = "unknown"
				}
				fmt.Printf("%s  %-9s  build %-10s  %5d frame(s)  %s\n",
					s.ID, s.Status, build, frames, s.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "override the session database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to list")

	return cmd
}
