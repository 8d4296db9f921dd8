package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/kakite/internal/config"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/stats"
	"github.com/verte-zerg/kakite/internal/store"
)

const defaultStatsWindow = 20

var (
	statsType   string
	statsSince  string
	statsLast   int
	statsWindow int
	statsChars  string
	statsTop    int
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsType, "type", "", "writing type filter (hiragana, katakana, kanji)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N strokes")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	cmd.Flags().StringVar(&statsChars, "char", "", "only these characters")
	cmd.Flags().IntVar(&statsTop, "top", stats.DefaultWeakTop, "number of weak characters to list")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	return report.Render(out, stats.RenderOptions{
		Now:      time.Now(),
		Window:   cfg.Window,
		WeakTop:  statsTop,
		UseColor: stats.ShouldUseColor(out),
	})
}

func statsConfig() (model.StatsConfig, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	switch statsType {
	case "", "hiragana", "katakana", "kanji":
	default:
		return model.StatsConfig{}, fmt.Errorf("--type must be hiragana, katakana or kanji")
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsWindow < 0 {
		return model.StatsConfig{}, fmt.Errorf("--window must be >= 0")
	}
	return model.StatsConfig{
		Type:   statsType,
		Since:  sinceTime,
		Last:   statsLast,
		Window: statsWindow,
		Chars:  statsChars,
	}, nil
}
