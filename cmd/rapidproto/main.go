// Command rapidproto drives the prototype pipeline from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose  bool
	provider string
	model    string
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "rapidproto",
	Short: "Turn a product idea into a clickable prototype",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "llm provider (anthropic, gemini, openai, fake); overrides LLM_PROVIDER")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model id; overrides LLM_MODEL")
	rootCmd.AddCommand(newRunCmd(), newPromptCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
