package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Build and cache the clue table",
	Long: `Computes the clue of every guess against every answer and saves it to
the configured cache, so later runs can load it instead of rebuilding.
Does nothing but report if the table is already cached.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine(cmd.Context(), cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		v := e.Vocab()
		fmt.Fprintf(cmd.OutOrStdout(), "clue table %s: %d guesses x %d answers (cache: %s)\n",
			v.ShortFingerprint(), v.NumGuesses(), v.NumAnswers(), cfg.Cache.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
}
