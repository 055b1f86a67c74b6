package commands

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/benjaminjkraft/dp-wordle/internal/arena"
	"github.com/benjaminjkraft/dp-wordle/internal/config"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/strategy"
)

var (
	evalStrategies []string
	evalTrials     int
	evalTrialsOut  string
	evalQuiet      bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate strategies over many random episodes",
	Long: `Plays every configured strategy (or those named with --strategy) for the
configured number of trials, each against a uniformly random answer, and
prints the 5th, 50th and 95th percentiles of the epsilon spent per episode.
A lost or timed-out episode scores inf.

If output is configured, one row per strategy is appended to that
semicolon-separated file.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringSliceVarP(&evalStrategies, "strategy", "s", nil, "strategies to run (default: all configured)")
	evalCmd.Flags().IntVarP(&evalTrials, "trials", "n", 0, "override the configured number of trials")
	evalCmd.Flags().StringVar(&evalTrialsOut, "trials-out", "", "write every episode to this file")
	evalCmd.Flags().BoolVarP(&evalQuiet, "quiet", "q", false, "no progress bars")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	var selected []config.StrategyConfig
	if len(evalStrategies) == 0 {
		selected = cfg.Strategies
	} else {
		for _, name := range evalStrategies {
			sc, err := strategyConfig(cfg, name)
			if err != nil {
				return err
			}
			selected = append(selected, sc)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("no strategies configured")
	}
	trials := cfg.Trials
	if evalTrials > 0 {
		trials = evalTrials
	}

	ctx := cmd.Context()
	progress := cmd.ErrOrStderr()
	if evalQuiet {
		progress = nil
	}
	e, err := loadEngine(ctx, cfg, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var results []*arena.Result
	for _, sc := range selected {
		f, err := strategy.FromConfig(e, sc)
		if err != nil {
			return err
		}
		opts := []arena.Option{
			arena.Trials(trials),
			arena.Timeout(cfg.Timeout),
			arena.Workers(cfg.Workers),
			arena.Seed(cfg.Seed),
			arena.WithLogger(logging.New("arena")),
		}
		var bar *progressbar.ProgressBar
		if !evalQuiet {
			bar = progressbar.NewOptions(trials,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription(f.Name),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			var mu sync.Mutex
			opts = append(opts, arena.OnTrial(func(arena.Trial) {
				mu.Lock()
				defer mu.Unlock()
				bar.Add(1)
			}))
		}

		res, err := arena.New(e.Vocab(), opts...).Evaluate(ctx, f)
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			return err
		}
		results = append(results, res)

		cyan.Fprintf(out, "%s\n", res.Strategy)
		fmt.Fprintf(out, "  p05 %s  p50 %s  p95 %s  won %d/%d  timeouts %d  errors %d\n",
			fmtScore(res.P05), fmtScore(res.P50), fmtScore(res.P95),
			res.Wins, len(res.Trials), res.Timeouts, res.Errors)
		for _, line := range res.Report() {
			fmt.Fprintf(out, "  %s\n", line)
		}
		if cfg.Output != "" {
			if err := arena.AppendSummary(cfg.Output, res); err != nil {
				return err
			}
		}
	}

	if evalTrialsOut != "" {
		f, err := os.Create(evalTrialsOut)
		if err != nil {
			return err
		}
		if err := arena.WriteTrials(f, results...); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", evalTrialsOut, err)
		}
		return f.Close()
	}
	return nil
}

func fmtScore(x float64) string {
	return fmt.Sprintf("%.4g", x)
}
