package regression

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/perspectron/perspectron/pkg/domain/blacklist"
	"github.com/perspectron/perspectron/pkg/app/policy"
	"github.com/perspectron/perspectron/pkg/infra/scoring"
)

// Entry is one labeled corpus sample.
type Entry struct {
	Text    string `mapstructure:"text"`
	Flagged bool   `mapstructure:"flagged"`
}

// Summary aggregates one corpus run.
type Summary struct {
	Total      int
	Passed     int
	Failed     int
	Errored    int
	Mismatches []string
}

func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "regression run: %d total, %d passed, %d failed, %d errored\n", s.Total, s.Passed, s.Failed, s.Errored)
	for _, m := range s.Mismatches {
		b.WriteString(m)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Runner replays the labeled corpus through the full scoring + policy
// pipeline, pacing requests to respect the scoring service's rate limits.
//
//go:generate mockery --name=Runner --dir=. --output=./mocks --filename=runner_mock.go --case=underscore --with-expecter
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

type runner struct {
	logger     *logrus.Logger
	scorer     scoring.Client
	evaluator  policy.Evaluator
	store      blacklist.Store
	corpusPath string
	delay      time.Duration
}

func NewRunner(
	logger *logrus.Logger,
	scorer scoring.Client,
	evaluator policy.Evaluator,
	store blacklist.Store,
	corpusPath string,
	delay time.Duration,
) Runner {
	return &runner{
		logger:     logger,
		scorer:     scorer,
		evaluator:  evaluator,
		store:      store,
		corpusPath: corpusPath,
		delay:      delay,
	}
}

func LoadCorpus(path string) ([]Entry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}
	var entries []Entry
	if err := v.UnmarshalKey("corpus", &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal corpus: %w", err)
	}
	return entries, nil
}

func (r *runner) Run(ctx context.Context) (Summary, error) {
	entries, err := LoadCorpus(r.corpusPath)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(entries)}
	for i, entry := range entries {
		if i > 0 {
			// The pacing delay only parks this run's goroutine; other events
			// keep being handled.
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.delay):
			}
		}

		vector, err := r.scorer.Score(ctx, entry.Text)
		if err != nil {
			r.logger.WithError(err).WithField("text", entry.Text).Warn("corpus entry scoring failed")
			summary.Errored++
			continue
		}

		matches, err := r.store.Matches(ctx, entry.Text)
		if err != nil {
			r.logger.WithError(err).Warn("corpus entry blacklist match failed")
			summary.Errored++
			continue
		}

		verdict, err := r.evaluator.Evaluate(vector, matches)
		if err != nil {
			r.logger.WithError(err).WithField("text", entry.Text).Warn("corpus entry evaluation failed")
			summary.Errored++
			continue
		}

		if verdict.Flagged == entry.Flagged {
			summary.Passed++
			continue
		}
		summary.Failed++
		summary.Mismatches = append(summary.Mismatches,
			fmt.Sprintf("mismatch: %q expected flagged=%t got flagged=%t", entry.Text, entry.Flagged, verdict.Flagged))
	}

	return summary, nil
}
