package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"livecode/internal/config"
	"livecode/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "livecode",
	Short: "livecode - live step-by-step code explanation",
	Long: `livecode explains programs as you edit them.

Edits are debounced, sent to a reasoning service, and the returned execution
steps are animated one at a time. Only the newest analysis is ever shown.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Initialize logger
		logger, err = logging.Initialize(logging.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			Categories: cfg.Logging.Categories,
		}, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", configPath), zap.String("provider", cfg.LLM.Provider))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logging.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")

	watchCmd.Flags().StringVarP(&language, "language", "l", "", "Source language (default: from extension)")
	watchCmd.Flags().BoolVar(&runOnSave, "run", false, "Also run the code on every change")
	explainCmd.Flags().StringVarP(&language, "language", "l", "", "Source language (default: from extension)")
	runCmd.Flags().StringVarP(&language, "language", "l", "", "Source language (default: from extension)")
	treeCmd.Flags().Int64Var(&maxFileBytes, "max-bytes", 1<<20, "Import files up to this size")

	// Add commands to root
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
