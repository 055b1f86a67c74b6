package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/benjaminjkraft/dp-wordle/internal/arena"
	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/strategy"
)

var (
	playStrategy string
	playAnswer   string
	playSeed     int64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play one traced episode",
	Long: `Plays a single episode of one configured strategy and prints every
guess with the true clue and the noisy clue the strategy was shown.

Examples:
  # First configured strategy against a random answer
  dpwordle play -c dpwordle.yml

  # A named strategy against a fixed answer
  dpwordle play -c dpwordle.yml --strategy g3 --answer knoll`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playStrategy, "strategy", "s", "", "strategy name (default: first configured)")
	playCmd.Flags().StringVarP(&playAnswer, "answer", "a", "", "secret word (default: random answer)")
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "noise seed (default: config seed, else time)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	sc, err := strategyConfig(cfg, playStrategy)
	if err != nil {
		return err
	}
	e, err := loadEngine(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	f, err := strategy.FromConfig(e, sc)
	if err != nil {
		return err
	}
	s, err := f.New(logging.New("play").WithField("strategy", f.Name))
	if err != nil {
		return err
	}

	seed := playSeed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	answer := playAnswer
	if answer == "" {
		answer = e.Vocab().Answer(r.Intn(e.Vocab().NumAnswers()))
	} else if _, ok := e.Vocab().AnswerIndex(answer); !ok {
		return fmt.Errorf("%q is not in the answer list", answer)
	}

	out := cmd.OutOrStdout()
	a := arena.New(e.Vocab(), arena.WithLogger(logging.New("arena")))
	n := 0
	t := a.Play(s, answer, r, func(turn arena.Turn) {
		n++
		mark := ""
		if turn.Noisy != turn.Real {
			mark = cyan.Sprint(" (noisy)")
		}
		fmt.Fprintf(out, "%2d. %s  eps=%-6.3g real %s  seen %s%s\n",
			n, turn.Guess, turn.Epsilon, colorize(turn.Guess, turn.Real), colorize(turn.Guess, turn.Noisy), mark)
	})
	if t.Err != nil {
		return fmt.Errorf("%s: %w", f.Name, t.Err)
	}
	fmt.Fprintf(out, "final guess %s, answer %s\n", colorize(t.Final, clue.Compute(t.Final, answer)), answer)
	if t.Won() {
		printVerdict(out, true, "won in %d moves, epsilon %.4g", t.Moves, t.Epsilon)
	} else {
		printVerdict(out, false, "lost after %d moves, epsilon %.4g", t.Moves, t.Epsilon)
	}
	return nil
}
