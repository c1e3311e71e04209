package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
)

// withDeps loads config, builds the dependency graph and runs fn with it.
func withDeps(cmd *cobra.Command, configPath string, fn func(ctx context.Context, d *deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

func NewLeaderboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the ranked leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, *configPath, func(ctx context.Context, d *deps) error {
				entries, err := d.service.Leaderboard(ctx)
				if err != nil {
					return err
				}
				printLeaderboard(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
}

func printLeaderboard(out io.Writer, entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scores yet")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tHANDLE\tSCORE\tPERCENT\tPLAYED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t@%s\t%d/%d\t%.0f%%\t%s\n",
			e.Rank, e.Handle, e.Score, e.TotalQuestions, e.Percentage, e.Timestamp.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func NewRaffleCmd(configPath *string) *cobra.Command {
	var (
		top        int
		candidates []string
	)
	cmd := &cobra.Command{
		Use:   "raffle",
		Short: "Draw a raffle winner among the top of the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, *configPath, func(ctx context.Context, d *deps) error {
				if !cmd.Flags().Changed("top") {
					top = d.cfg.Raffle.Top
				}
				pool := app.CanonicalCandidates(candidates)
				if len(pool) == 0 {
					var err error
					pool, err = d.service.TopCandidates(ctx, top)
					if err != nil {
						return err
					}
				}
				record, err := d.service.DrawRaffle(ctx, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Participants: %v\n", record.Participants)
				fmt.Fprintf(cmd.OutOrStdout(), "Winner: %s\n", color.New(color.FgGreen, color.Bold).Sprint("@"+record.Winner))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 3, "draw among the top N ranked players (default raffle.top)")
	cmd.Flags().StringSliceVar(&candidates, "candidates", nil, "explicit candidate handles (overrides --top)")
	return cmd
}

func NewExportCmd(configPath *string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the participant and answer report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, *configPath, func(ctx context.Context, d *deps) error {
				if !cmd.Flags().Changed("out") {
					outDir = d.cfg.Export.Dir
				}
				report, err := d.exporter.Build(ctx)
				if err != nil {
					return err
				}
				path, err := writeReport(outDir, d.exporter, report)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d participants to %s\n", len(report.Participants), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the report into (default export.dir)")
	return cmd
}

// NewResetCmd ends the game: it exports everything and then clears the store.
func NewResetCmd(configPath *string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Export all data and clear scores, players, answers and raffle history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, *configPath, func(ctx context.Context, d *deps) error {
				if !cmd.Flags().Changed("out") {
					outDir = d.cfg.Export.Dir
				}
				var path string
				err := d.exporter.EndGame(ctx, func(report app.Report) error {
					var err error
					path, err = writeReport(outDir, d.exporter, report)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Data exported to %s and cleared\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the final report into (default export.dir)")
	return cmd
}

func writeReport(dir string, exporter *app.Exporter, report app.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, exporter.FileName(report.ExportDate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
