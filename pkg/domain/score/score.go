package score

import (
	"sort"

	"github.com/perspectron/perspectron/pkg/domain"
)

// Attribute is a toxicity-related dimension scored by the analysis service.
type Attribute string

const (
	SevereToxicity Attribute = "SEVERE_TOXICITY"
	Toxicity       Attribute = "TOXICITY"
	IdentityAttack Attribute = "IDENTITY_ATTACK"
	Threat         Attribute = "THREAT"
	Profanity      Attribute = "PROFANITY"
	Flirtation     Attribute = "FLIRTATION"
	Insult         Attribute = "INSULT"
)

// DefaultAttributes is the set requested from the scoring service when the
// configuration does not name its own.
var DefaultAttributes = []Attribute{
	SevereToxicity,
	Toxicity,
	IdentityAttack,
	Threat,
	Profanity,
	Flirtation,
}

// Vector holds the attribute scores returned for one message evaluation.
// Immutable by convention once returned from the scoring client.
type Vector map[Attribute]float64

// Validate rejects any value outside [0,1]. Invalid values must stay
// distinguishable from valid low scores, so they are never clamped.
func (v Vector) Validate() error {
	for attr, value := range v {
		if value < 0 || value > 1 {
			return domain.NewInvalidScoreError(string(attr), value)
		}
	}
	return nil
}

// Attributes returns the scored attribute names in sorted order, for
// deterministic rendering.
func (v Vector) Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(v))
	for attr := range v {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })
	return attrs
}
