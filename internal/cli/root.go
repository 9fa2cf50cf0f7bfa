package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apresai/paperpod/internal/config"
	"github.com/apresai/paperpod/internal/observability"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "paperpod",
	Short:         "Turn research papers into two-host podcast episodes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "paperpod %s\n", Version)
	},
}

var (
	flagConfig   string
	flagVerbose  bool
	flagLLM      string
	flagModel    string
	flagTTS      string
	flagLogLevel string
	flagInput    string
	flagOutput   string
	flagHTML     bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listVoicesCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file (default "+config.DefaultPath+" when present)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log every step instead of showing a progress bar")
	pf.StringVar(&flagLLM, "llm", "", "Language model provider: openai, claude, gemini, nova")
	pf.StringVar(&flagModel, "model", "", "Language model name (provider default when empty)")
	pf.StringVar(&flagTTS, "tts", "", "Speech provider: elevenlabs, google, polly, gemini")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	for _, cmd := range []*cobra.Command{scriptCmd, metadataCmd, audioCmd} {
		cmd.Flags().StringVarP(&flagInput, "input", "i", "", "Input file (auto-discovered when omitted)")
		cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file or directory")
	}
	runCmd.Flags().StringVarP(&flagInput, "input", "i", "", "Source PDF (auto-discovered when omitted)")
	for _, cmd := range []*cobra.Command{metadataCmd, runCmd, watchCmd} {
		cmd.Flags().BoolVar(&flagHTML, "html", false, "Also write HTML show notes next to the metadata")
	}
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app is the per-invocation state shared by the stage commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	shutdown observability.ShutdownFunc
	out      io.Writer
}

// setup loads configuration, applies flag overrides, fills secrets and
// starts logging and tracing.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}

	logger, err := observability.InitLogger(cmd.ErrOrStderr(), logLevel(cfg), cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if err := cfg.LoadSecrets(ctx, logger); err != nil {
		logger.WarnContext(ctx, "secrets manager unavailable", "error", err)
	}

	shutdown, err := observability.InitTracer(ctx, "paperpod", Version)
	if err != nil {
		logger.WarnContext(ctx, "failed to init tracer, continuing without tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	return &app{cfg: cfg, logger: logger, shutdown: shutdown, out: cmd.OutOrStdout()}, nil
}

// applyFlags overrides config values with the global flags that were set.
func applyFlags(cfg *config.Config) error {
	if flagLLM != "" {
		if flagLLM != cfg.LLM.Provider && flagModel == "" {
			// a model name from the config belongs to the old provider
			cfg.LLM.Model = ""
		}
		cfg.LLM.Provider = flagLLM
	}
	if flagModel != "" {
		cfg.LLM.Model = flagModel
	}
	if flagTTS != "" {
		cfg.TTS.Provider = flagTTS
	}
	if flagHTML {
		cfg.Metadata.HTML = true
	}
	return cfg.Validate()
}

// logLevel keeps the terminal quiet under the progress bar unless asked.
func logLevel(cfg *config.Config) string {
	switch {
	case flagLogLevel != "":
		return flagLogLevel
	case flagVerbose:
		if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
			return "debug"
		}
		return cfg.Logging.Level
	default:
		return "warn"
	}
}

func (a *app) close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Error("tracer shutdown error", "error", err)
	}
}

// withApp wraps a command body with setup and teardown.
func withApp(fn func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a)
	}
}

// Fatal prints err as a single line to stderr.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "paperpod: %v\n", err)
}
