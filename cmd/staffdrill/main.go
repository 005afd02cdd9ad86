// Package main provides the CLI entrypoint for staffdrill.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/staffdrill/internal/audio"
	"github.com/verte-zerg/staffdrill/internal/config"
	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/generator"
	"github.com/verte-zerg/staffdrill/internal/logging"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/stats"
	"github.com/verte-zerg/staffdrill/internal/statsui"
	"github.com/verte-zerg/staffdrill/internal/store"
	"github.com/verte-zerg/staffdrill/internal/trainer"
	"github.com/verte-zerg/staffdrill/internal/tui"
)

const (
	defaultVariant     = curriculum.StagedName
	defaultDecay       = 2.0
	defaultCurveWindow = 7
	defaultLogLevel    = "info"
)

var (
	practiceVariant   string
	practiceTimeLimit time.Duration
	practiceMute      bool
	practiceVolume    float64
	practiceDecay     float64
	practiceSeed      int64

	logFile  string
	logLevel string

	statsVariant     string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	profileVariant string
	exportOutput   string
	resetYes       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "staffdrill",
		Short:         "TUI staff-note reading trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceVariant, "variant", defaultVariant, "trainer variant (staged or simple)")
	rootCmd.Flags().DurationVar(&practiceTimeLimit, "time-limit", 0, "per-question limit for the simple variant (0 = untimed)")
	rootCmd.Flags().BoolVar(&practiceMute, "mute", false, "disable note tones")
	rootCmd.Flags().Float64Var(&practiceVolume, "volume", audio.DefaultVolume, "tone volume (0-1)")
	rootCmd.Flags().Float64Var(&practiceDecay, "decay-per-day", defaultDecay, "mastery lost per idle day (staged variant)")
	rootCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "random seed for note selection (0 = random)")

	rootCmd.Flags().StringVar(&logFile, "log-file", config.DefaultLogPath(), "diagnostic log file (empty disables)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel, "diagnostic log level")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newStagesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "variant", &practiceVariant, fileCfg.Practice.Variant)
	applyDurationMsConfig(cmd, "time-limit", &practiceTimeLimit, fileCfg.Practice.TimeLimitMs)
	applyBoolConfig(cmd, "mute", &practiceMute, fileCfg.Practice.Mute)
	applyFloatConfig(cmd, "volume", &practiceVolume, fileCfg.Practice.Volume)
	applyFloatConfig(cmd, "decay-per-day", &practiceDecay, fileCfg.Practice.DecayPerDay)
	applyInt64Config(cmd, "seed", &practiceSeed, fileCfg.Practice.Seed)

	cfg := model.Config{
		Variant:     practiceVariant,
		TimeLimit:   practiceTimeLimit,
		Mute:        practiceMute,
		Volume:      practiceVolume,
		DecayPerDay: practiceDecay,
		Seed:        practiceSeed,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	v, err := curriculum.Lookup(cfg.Variant, cfg.TimeLimit)
	if err != nil {
		return err
	}
	if v.Name == curriculum.StagedName {
		v.DecayPerDay = cfg.DecayPerDay
	}

	logger, closeLog, err := openLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	defer closeLogger(closeLog)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	gen := generator.New()
	if cfg.Seed != 0 {
		gen = generator.NewWithSeed(cfg.Seed)
	}
	ctx := context.Background()
	session, err := trainer.Open(ctx, st, v,
		trainer.WithGenerator(gen),
		trainer.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			logErrf("failed to save progress: %v\n", cerr)
		}
	}()

	var player audio.Player = audio.Nop{}
	if !cfg.Mute {
		tone := audio.NewTone(cfg.Volume)
		defer func() {
			if cerr := tone.Close(); cerr != nil {
				// Best-effort release of audio players.
				_ = cerr
			}
		}()
		player = tone
	}

	statsCfg := model.StatsConfig{CurveWindow: defaultCurveWindow}
	if fileCfg.Stats.CurveWindow != nil {
		statsCfg.CurveWindow = *fileCfg.Stats.CurveWindow
	}
	m := tui.NewModel(session, st, player, logger, statsCfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	m.SetSender(program.Send)
	logger.Info("practice started", zap.String("variant", v.Name), zap.String("session", session.SessionID()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
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

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsVariant, "variant", defaultVariant, "trainer variant")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N days")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window in days")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain-text report")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "variant", &statsVariant, fileCfg.Practice.Variant)
	applyIntConfig(cmd, "last", &statsLast, fileCfg.Stats.Last)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	v, err := curriculum.Lookup(statsVariant, 0)
	if err != nil {
		return err
	}
	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		report, err := stats.BuildReport(context.Background(), st, v, cfg)
		if err != nil {
			return fmt.Errorf("failed to build stats: %w", err)
		}
		return stats.Render(cmd.OutOrStdout(), report, cfg.CurveWindow, time.Now())
	}

	m := statsui.NewModel(st, v, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newStagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List curriculum stages and progress",
		Args:  cobra.NoArgs,
		RunE:  runStagesCmd,
	}
	cmd.Flags().StringVar(&profileVariant, "variant", defaultVariant, "trainer variant")
	return cmd
}

func runStagesCmd(cmd *cobra.Command, _ []string) error {
	v, err := curriculum.Lookup(profileVariant, 0)
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeStore(st)

	report, err := stats.BuildReport(context.Background(), st, v, model.StatsConfig{})
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	return stats.RenderStages(cmd.OutOrStdout(), report.Stages)
}

func openLogger(cmd *cobra.Command, fileCfg config.FileConfig) (*zap.Logger, func() error, error) {
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	logger, closeFn, err := logging.New(logging.Options{Path: logFile, Level: logLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, closeFn, nil
}

func closeLogger(closeFn func() error) {
	if err := closeFn(); err != nil {
		logErrf("failed to close log: %v\n", err)
	}
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
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

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
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

func applyDurationMsConfig(cmd *cobra.Command, name string, target *time.Duration, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = time.Duration(*value) * time.Millisecond
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# staffdrill configuration
# Uncomment a value to enable it. Environment variables (STAFFDRILL_PRACTICE_MUTE=true)
# override config values, and CLI flags override both.

[practice]
# variant = %q        # staged or simple
# time-limit-ms = 0         # Per-question limit for the simple variant (0 = untimed)
# mute = false              # Disable note tones
# volume = %.2f             # Tone volume (0-1)
# decay-per-day = %.1f       # Mastery lost per idle day (staged variant)
# seed = 0                  # Random seed (0 = random)

[stats]
# curve-window = %d          # Moving average window in days
# last = 0                  # Limit to last N days

[log]
# level = %q             # debug, info, warn or error
# file = %q
`,
		defaultVariant,
		audio.DefaultVolume,
		defaultDecay,
		defaultCurveWindow,
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.TimeLimit < 0 {
		return fmt.Errorf("--time-limit must be >= 0")
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return fmt.Errorf("--volume must be between 0 and 1")
	}
	if cfg.DecayPerDay < 0 {
		return fmt.Errorf("--decay-per-day must be >= 0")
	}
	return nil
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
