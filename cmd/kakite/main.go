// Package main provides the CLI entrypoint for kakite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kakite/internal/config"
	"github.com/verte-zerg/kakite/internal/generator"
	"github.com/verte-zerg/kakite/internal/kanjivg"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/session"
	"github.com/verte-zerg/kakite/internal/stats"
	"github.com/verte-zerg/kakite/internal/store"
	"github.com/verte-zerg/kakite/internal/strokedata"
	"github.com/verte-zerg/kakite/internal/tui"
	"github.com/verte-zerg/kakite/internal/validate"
	"github.com/verte-zerg/kakite/internal/wordlist"
)

const (
	defaultWeakTop    = 8
	defaultWeakFactor = 2.0
	defaultWeakWindow = 200
)

var (
	verbose bool

	practiceChars      string
	practiceWordsFile  string
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int

	strokesDir     string
	strokesRemote  string
	strokesOffline bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kakite",
		Short:         "Terminal stroke-order trainer for kana and kanji",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&strokesDir, "strokes-dir", config.DefaultStrokesDir(), "directory with stroke bundles")
	rootCmd.PersistentFlags().StringVar(&strokesRemote, "remote-url", kanjivg.RawBaseURL, "base URL for per-character KanjiVG files")
	rootCmd.PersistentFlags().BoolVar(&strokesOffline, "offline", false, "never fetch stroke data from the network")

	rootCmd.Flags().StringVar(&practiceChars, "chars", "", "characters to practice (default: saved words)")
	rootCmd.Flags().StringVar(&practiceWordsFile, "words-file", "", "word file to take characters from")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak characters")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak characters to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak characters")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent strokes to compute weak chars")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newStrokesCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newWordsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "chars", &practiceChars, fileCfg.Practice.Chars)
	applyStringConfig(cmd, "words-file", &practiceWordsFile, fileCfg.Practice.WordsFile)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)

	correctDelay, err := config.ParseDelay(fileCfg.Practice.CorrectDelay, session.DefaultCorrectDelay)
	if err != nil {
		return fmt.Errorf("invalid practice.correct-delay: %w", err)
	}
	incorrectDelay, err := config.ParseDelay(fileCfg.Practice.IncorrectDelay, session.DefaultIncorrectDelay)
	if err != nil {
		return fmt.Errorf("invalid practice.incorrect-delay: %w", err)
	}

	cfg := model.Config{
		Chars:          practiceChars,
		WordsFile:      practiceWordsFile,
		FocusWeak:      practiceFocusWeak,
		WeakTop:        practiceWeakTop,
		WeakFactor:     practiceWeakFactor,
		WeakWindow:     practiceWeakWindow,
		CorrectDelay:   correctDelay,
		IncorrectDelay: incorrectDelay,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	validation := fileCfg.Validation.Apply(validate.DefaultConfig())
	if err := validation.Check(); err != nil {
		return fmt.Errorf("invalid [validation] config: %w", err)
	}

	logger := newLogger()
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	characters, err := resolvePracticeChars(ctx, cfg, st)
	if err != nil {
		return err
	}

	provider, err := openProvider(st, logger)
	if err != nil {
		return err
	}
	if n, err := provider.Preload(ctx, characters); err != nil {
		logErrf("failed to preload stroke data: %v\n", err)
	} else if n < len(characters) {
		logger.Info("some characters have no stroke data", "loaded", n, "requested", len(characters))
	}

	weakSet := map[string]struct{}{}
	if cfg.FocusWeak {
		aggs, err := st.GetWeakChars(ctx, cfg.WeakWindow, "")
		if err != nil {
			logErrf("failed to load weak chars: %v\n", err)
		} else {
			weakSet = stats.SelectWeakChars(aggs, cfg.WeakTop)
			if len(weakSet) == 0 {
				logErrln("no stats available for weak-char focus yet; using normal order")
			}
		}
	}

	m := tui.NewModel(tui.Options{
		Config:     cfg,
		Validation: validation,
		Strokes:    provider,
		Store:      st,
		Generator:  generator.New(),
		Characters: characters,
		WeakSet:    weakSet,
		Logger:     logger,
	})
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	logger.Debug("practice finished", "remote_fetches", provider.RemoteFetches())
	return m.Err()
}

// resolvePracticeChars prefers --chars, then --words-file, then saved words.
func resolvePracticeChars(ctx context.Context, cfg model.Config, st *store.Store) ([]string, error) {
	if cfg.Chars != "" {
		characters := wordlist.Characters([]string{cfg.Chars})
		if len(characters) == 0 {
			return nil, fmt.Errorf("--chars has no kana or kanji")
		}
		return characters, nil
	}
	if cfg.WordsFile != "" {
		words, err := wordlist.LoadWords(cfg.WordsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load word file: %w", err)
		}
		characters := wordlist.Characters(words)
		if len(characters) == 0 {
			return nil, fmt.Errorf("word file %s has no kana or kanji", cfg.WordsFile)
		}
		return characters, nil
	}
	characters, err := st.WordCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved words: %w", err)
	}
	if len(characters) == 0 {
		lines := []string{
			"nothing to practice yet",
			"Practice specific characters: kakite --chars 日本語",
			"Or save words first: kakite words add 日本語",
		}
		return nil, fmt.Errorf("%s", strings.Join(lines, "\n"))
	}
	return characters, nil
}

// openProvider wires the bundle directory, the SQLite cache and the remote
// repository. Persistent flags override the [strokes] section.
func openProvider(st *store.Store, logger *slog.Logger) (*strokedata.Provider, error) {
	bundle, err := strokedata.Load(strokesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load stroke bundle: %w", err)
	}
	if bundle.Count(strokedata.TierKana)+bundle.Count(strokedata.TierCommon) == 0 {
		logger.Info("no stroke bundle found; run: kakite strokes build", "dir", strokesDir)
	}
	return strokedata.NewProvider(strokedata.Options{
		Bundle:        bundle,
		Cache:         st,
		RemoteBaseURL: strokesRemote,
		Offline:       strokesOffline,
		Logger:        logger,
	})
}

// loadFileConfig reads the config file and applies the [strokes] section to
// the persistent flags.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "strokes-dir", &strokesDir, fileCfg.Strokes.Dir)
	applyStringConfig(cmd, "remote-url", &strokesRemote, fileCfg.Strokes.RemoteURL)
	applyBoolConfig(cmd, "offline", &strokesOffline, fileCfg.Strokes.Offline)
	return fileCfg, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	d := validate.DefaultConfig()
	return fmt.Sprintf(`# kakite configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# chars = "日本語"            # Characters to practice (default: saved words)
# words-file = ""            # Word file, one word per line
# focus-weak = false         # Bias practice toward weak characters
# weak-top = %d               # Number of weak characters to focus on
# weak-factor = %.1f          # Weight factor for weak characters
# weak-window = %d          # Number of recent strokes to compute weak chars
# correct-delay = %q      # Pause after a correct stroke
# incorrect-delay = %q    # Pause after an incorrect stroke

[validation]
# start-tolerance = %.2f     # Max start distance (0-1 canvas units)
# end-tolerance = %.2f       # End distance that still scores
# direction-tolerance = %.0f  # Max angle difference in degrees
# shape-tolerance = %.2f     # Reserved, not used for scoring
# min-points = %d             # Minimum samples per stroke
# valid-threshold = %.2f     # Confidence needed to accept a stroke
# length-scale = %.0f          # Path length multiplier for the length score

# [validation.weights]
# start = %.2f
# end = %.2f
# direction = %.2f
# length = %.2f

[strokes]
# dir = %q
# remote-url = %q
# offline = false
`,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		session.DefaultCorrectDelay.String(),
		session.DefaultIncorrectDelay.String(),
		d.StartTolerance,
		d.EndTolerance,
		d.DirectionToleranceDegrees,
		d.ShapeTolerance,
		d.MinPointCount,
		d.ValidThreshold,
		d.LengthScale,
		d.Weights.Start,
		d.Weights.End,
		d.Weights.Direction,
		d.Weights.Length,
		config.DefaultStrokesDir(),
		kanjivg.RawBaseURL,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if cfg.FocusWeak && cfg.WeakWindow == 0 {
		return fmt.Errorf("--weak-window must be > 0 with --focus-weak")
	}
	if cfg.CorrectDelay <= 0 || cfg.IncorrectDelay <= 0 {
		return fmt.Errorf("feedback delays must be > 0")
	}
	return nil
}

// newLogger returns a stderr text logger with --verbose and a silent one otherwise.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// exitError carries a process exit status without an error message.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) (int, bool) {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
