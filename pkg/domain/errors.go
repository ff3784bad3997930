package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrScoringService marks any failure of the external scoring collaborator
	// (non-200, timeout, malformed body). Callers must never treat it as a
	// zero score.
	ErrScoringService = errors.New("scoring service request failed")

	// ErrInvalidScoreValue marks an attribute value outside [0,1].
	ErrInvalidScoreValue = errors.New("score value outside [0,1]")

	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing command argument")

	// ErrResolutionTargetNotFound marks a reported or reacted-to message id
	// that does not resolve to a message.
	ErrResolutionTargetNotFound = errors.New("resolution target not found")

	// ErrDuplicateResolution marks a moderator action on an already-terminal
	// report. Handled silently, never surfaced to users.
	ErrDuplicateResolution = errors.New("report already resolved")

	// ErrSelfReport marks an attempt to report a message authored by the bot.
	ErrSelfReport = errors.New("cannot report a moderation message")
)

func NewInvalidScoreError(attribute string, value float64) error {
	return fmt.Errorf("%w: attribute %s has value %v", ErrInvalidScoreValue, attribute, value)
}

func IsScoringServiceError(err error) bool {
	return errors.Is(err, ErrScoringService)
}

func IsDuplicateResolution(err error) bool {
	return errors.Is(err, ErrDuplicateResolution)
}
