package main

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/komronbek/timetable/internal/database"
	"github.com/komronbek/timetable/internal/logging"
)

func newSeedCommand() *cobra.Command {
	var (
		file      string
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load timetable rows from a CSV file",
		Long: `Seed creates the timetable table if it does not exist and inserts every row
of the CSV file in a single transaction. The header must contain the
lowercase columns level, day, start_time, end_time, subject, teacher and room.
Files with a missing column are rejected before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delim, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Apply(cfg.Log)

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			entries, err := database.LoadEntries(f, delim)
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			if err := db.EnsureTimetable(ctx); err != nil {
				return err
			}
			n, err := db.InsertEntries(ctx, entries)
			if err != nil {
				return err
			}
			if err := db.Optimize(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to refresh planner statistics")
			}

			log.Info().Str("file", file).Int("rows", n).Msg("Seed complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with timetable rows")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// parseDelimiter accepts exactly one character
func parseDelimiter(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
