// Package commands is the dpwordle command line.
package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/benjaminjkraft/dp-wordle/internal/config"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dpwordle",
	Short: "Play Wordle through a differentially private clue channel",
	Long: `dpwordle evaluates strategies for a Wordle variant in which every clue
passes through a noisy channel. Each clue costs privacy budget (epsilon);
the less spent, the noisier the clue. A strategy wins by naming the secret
word with its final guess, and is scored by the total epsilon it spent.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := logging.Init(c.Log.Level, c.Log.Format, cmd.ErrOrStderr()); err != nil {
			return err
		}
		cfg = c
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the command named by os.Args. An interrupt cancels the
// running command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func SetVersion(v string) { rootCmd.Version = v }

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
