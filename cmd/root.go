// Package cmd provides CLI commands for auplugins.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/plugin"
)

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		// pretty output only when a person is watching
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
		} else {
			handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		}
	}

	slog.SetDefault(slog.New(handler))
}

var pluginsDir string

var rootCmd = &cobra.Command{
	Use:   "auplugins",
	Short: "Run publisher plugins against preserved content",
	Long: `auplugins runs publisher plugins over archival units (AUs) held in a
content store. A plugin knows one publisher's URL layout: which URLs belong
to an AU, how they group into articles, and how to pull article metadata.

Stores are given as dir:/path, sqlite:/path/to.db or redis://host:6379/0.

Examples:
  auplugins plugins list
  auplugins iterate org.pkp.ojs --store dir:./mirror -p base_url=http://journal.example.edu/ -p journal_id=jmla -p year=2014
  auplugins extract --aus aus.yaml --store sqlite:content.db > records.jsonl
  auplugins normalize org.pkp.ojs -p base_url=http://journal.example.edu/ 'HTTP://Journal.Example.edu/x;jsessionid=1'`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if pluginsDir == "" {
			return nil
		}
		if err := plugin.DefaultRegistry.LoadFromDirectory(pluginsDir); err != nil {
			return fmt.Errorf("loading plugins from %s: %w", pluginsDir, err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.PersistentFlags().StringVar(&pluginsDir, "plugins-dir", os.Getenv("AUPLUGINS_DIR"), "Directory of extra plugin definitions (*.yaml)")
}
