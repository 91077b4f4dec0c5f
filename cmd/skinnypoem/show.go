package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seantiz/skinnypoem/internal/config"
	"github.com/seantiz/skinnypoem/internal/poem"
	"github.com/seantiz/skinnypoem/internal/schedule"
)

func newShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [date]",
		Short: "Print an archived poem as text (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))

			eng, db, _, err := openEngine(cfg, schedule.SystemClock{}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			var date string
			if len(args) == 1 {
				date = args[0]
			}
			p, err := eng.DailyPoem(cmd.Context(), date)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), poem.Text(*p))
			return err
		},
	}
}
