package policy

import (
	"sort"

	"github.com/perspectron/perspectron/pkg/config"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/domain/score"
)

// Config carries the externally-configured decision constants. The evaluator
// itself holds no other state, so verdicts are deterministic for a given
// vector and match set.
type Config struct {
	Thresholds      map[score.Attribute]float64
	Epsilon         float64
	ProfanityCutoff float64
}

// FromModerationConfig builds the policy configuration from the loaded
// application config.
func FromModerationConfig(cfg config.ModerationConfig) Config {
	thresholds := make(map[score.Attribute]float64, len(cfg.Thresholds))
	for attr, threshold := range cfg.Thresholds {
		thresholds[score.Attribute(attr)] = threshold
	}
	return Config{
		Thresholds:      thresholds,
		Epsilon:         cfg.Epsilon,
		ProfanityCutoff: cfg.ProfanityCutoff,
	}
}

//go:generate mockery --name=Evaluator --dir=. --output=./mocks --filename=evaluator_mock.go --case=underscore --with-expecter
type Evaluator interface {
	Evaluate(vector score.Vector, blacklistMatches []string) (moderation.Verdict, error)
}

type evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) Evaluator {
	return &evaluator{cfg: cfg}
}

// Evaluate maps a score vector plus blacklist matches to a verdict. Pure and
// side-effect free.
//
// An attribute at least epsilon above its threshold is always decisive. A
// score inside [threshold, threshold+epsilon) is decisive only when the
// PROFANITY score reaches the cutoff: near-threshold triggers caused mostly
// by profanity would otherwise flood moderators. The cutoff values were
// calibrated against live traffic; keep them in configuration.
func (e *evaluator) Evaluate(vector score.Vector, blacklistMatches []string) (moderation.Verdict, error) {
	if err := vector.Validate(); err != nil {
		return moderation.Verdict{}, err
	}

	verdict := moderation.Verdict{Vector: vector}

	profanity := vector[score.Profanity]
	for attr, threshold := range e.cfg.Thresholds {
		value, ok := vector[attr]
		if !ok {
			continue
		}
		if value < threshold {
			continue
		}
		borderline := value < threshold+e.cfg.Epsilon
		if borderline && profanity < e.cfg.ProfanityCutoff {
			continue
		}
		verdict.TriggeredScores = append(verdict.TriggeredScores, moderation.TriggeredScore{
			Attribute: attr,
			Value:     value,
			Threshold: threshold,
		})
	}

	sort.Slice(verdict.TriggeredScores, func(i, j int) bool {
		return verdict.TriggeredScores[i].Attribute < verdict.TriggeredScores[j].Attribute
	})

	verdict.MatchedPhrases = blacklistMatches
	verdict.Flagged = len(verdict.TriggeredScores) > 0 || len(blacklistMatches) > 0

	return verdict, nil
}
