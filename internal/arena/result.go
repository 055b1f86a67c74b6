package arena

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Result summarizes the trials of one strategy. Percentiles are of
// Trial.Score, so any of them may be +Inf.
type Result struct {
	Strategy      string
	Trials        []Trial
	P05, P50, P95 float64
	Timeouts      int
	Errors        int
	Wins          int
}

func newResult(name string, trials []Trial) *Result {
	r := &Result{Strategy: name, Trials: trials}
	scores := make([]float64, len(trials))
	for i, t := range trials {
		scores[i] = t.Score()
		switch {
		case t.TimedOut:
			r.Timeouts++
		case t.Err != nil:
			r.Errors++
		case t.Won():
			r.Wins++
		}
	}
	sort.Float64s(scores)
	r.P05 = quantile(scores, 0.05)
	r.P50 = quantile(scores, 0.5)
	r.P95 = quantile(scores, 0.95)
	return r
}

// Quantile is the q-th quantile of xs by linear interpolation between
// order statistics. An interpolation that touches +Inf is +Inf.
func Quantile(xs []float64, q float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return quantile(s, q)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	if frac == 0 || sorted[lo] == sorted[hi] {
		return sorted[lo]
	}
	if math.IsInf(sorted[hi], 1) {
		return math.Inf(1)
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Per-answer metrics: each reports the answers the strategy does worst on.

type metricImpl[T constraints.Ordered] struct {
	name        string
	badnessFunc func(scores []float64) T
}

func (m *metricImpl[T]) run(results map[string][]float64) string {
	var worst T
	var worstWords []string
	for w, r := range results {
		badness := m.badnessFunc(r)
		switch {
		case worstWords == nil || worst < badness:
			worstWords = []string{w}
			worst = badness
		case worst == badness:
			worstWords = append(worstWords, w)
		}
	}
	sort.Strings(worstWords)
	return fmt.Sprintf("worst %v: %v (%v)", m.name, worst, strings.Join(worstWords, " "))
}

type metric interface {
	run(results map[string][]float64) string
}

var metrics = []metric{
	&metricImpl[int]{"losses", func(r []float64) int {
		n := 0
		for _, s := range r {
			if math.IsInf(s, 1) {
				n++
			}
		}
		return n
	}},
	&metricImpl[float64]{"loss rate", func(r []float64) float64 {
		n := 0
		for _, s := range r {
			if math.IsInf(s, 1) {
				n++
			}
		}
		return 100 * float64(n) / float64(len(r))
	}},
	&metricImpl[float64]{"median score", func(r []float64) float64 {
		return Quantile(r, 0.5)
	}},
}

// Report lists, per metric, the answers this strategy handled worst.
func (r *Result) Report() []string {
	byAnswer := map[string][]float64{}
	for _, t := range r.Trials {
		byAnswer[t.Answer] = append(byAnswer[t.Answer], t.Score())
	}
	if len(byAnswer) == 0 {
		return nil
	}
	lines := make([]string, len(metrics))
	for i, m := range metrics {
		lines[i] = m.run(byAnswer)
	}
	return lines
}

func formatScore(x float64) string {
	if math.IsInf(x, 1) {
		return "inf"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}

var summaryHeader = []string{"strategy", "p05", "p50", "p95", "timeouts"}

func newCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

// WriteSummary writes one semicolon-separated row per result, after a
// header row if header is set.
func WriteSummary(w io.Writer, header bool, results ...*Result) error {
	cw := newCSVWriter(w)
	if header {
		if err := cw.Write(summaryHeader); err != nil {
			return err
		}
	}
	for _, r := range results {
		row := []string{r.Strategy, formatScore(r.P05), formatScore(r.P50), formatScore(r.P95), strconv.Itoa(r.Timeouts)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendSummary appends results to the CSV file at path, writing the header
// first if the file is new or empty.
func AppendSummary(path string, results ...*Result) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := WriteSummary(f, info.Size() == 0, results...); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteTrials writes every trial of results, one row each.
func WriteTrials(w io.Writer, results ...*Result) error {
	cw := newCSVWriter(w)
	if err := cw.Write([]string{"episode", "strategy", "answer", "final", "moves", "epsilon", "won", "timed_out", "error"}); err != nil {
		return err
	}
	for _, r := range results {
		for _, t := range r.Trials {
			errStr := ""
			if t.Err != nil {
				errStr = t.Err.Error()
			}
			row := []string{
				t.ID.String(), r.Strategy, t.Answer, t.Final,
				strconv.Itoa(t.Moves), formatScore(t.Epsilon),
				strconv.FormatBool(t.Won()), strconv.FormatBool(t.TimedOut), errStr,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
