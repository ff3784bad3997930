package moderation

import "github.com/perspectron/perspectron/pkg/domain/score"

// TriggeredScore records one attribute whose score crossed its threshold.
type TriggeredScore struct {
	Attribute score.Attribute `json:"attribute"`
	Value     float64         `json:"value"`
	Threshold float64         `json:"threshold"`
}

// Verdict is the moderation engine's decision for one message, together with
// the signals that justified it. Either side may be empty even when the
// message is flagged by the other.
type Verdict struct {
	Flagged         bool             `json:"flagged"`
	TriggeredScores []TriggeredScore `json:"triggered_scores,omitempty"`
	MatchedPhrases  []string         `json:"matched_phrases,omitempty"`
	Vector          score.Vector     `json:"vector,omitempty"`
}
