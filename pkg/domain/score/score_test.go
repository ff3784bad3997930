package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perspectron/perspectron/pkg/domain"
)

func TestVectorValidate(t *testing.T) {
	valid := Vector{SevereToxicity: 0.0, Threat: 1.0, Profanity: 0.5}
	assert.NoError(t, valid.Validate())

	tooHigh := Vector{SevereToxicity: 1.01}
	assert.ErrorIs(t, tooHigh.Validate(), domain.ErrInvalidScoreValue)

	negative := Vector{Threat: -0.2}
	assert.ErrorIs(t, negative.Validate(), domain.ErrInvalidScoreValue)
}

func TestVectorAttributesSorted(t *testing.T) {
	v := Vector{Toxicity: 0.1, Flirtation: 0.2, IdentityAttack: 0.3}
	assert.Equal(t, []Attribute{Flirtation, IdentityAttack, Toxicity}, v.Attributes())
}
