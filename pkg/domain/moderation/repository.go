package moderation

import "context"

// Repository indexes posted reports by the report message id so a later
// moderator reaction can be resolved back to the original message without
// re-parsing the rendered report text.
//
//go:generate mockery --name=Repository --dir=. --output=./mocks --filename=repository_mock.go --case=underscore --with-expecter
type Repository interface {
	Save(ctx context.Context, record *EscalationRecord) error

	// FindByReportMessageID returns domain.ErrResolutionTargetNotFound when
	// no record is indexed for the report message.
	FindByReportMessageID(ctx context.Context, reportMessageID string) (*EscalationRecord, error)

	// MarkResolved applies the terminal action with first-writer-wins
	// semantics: the second and later callers get
	// domain.ErrDuplicateResolution and the record stays untouched.
	MarkResolved(ctx context.Context, reportMessageID string, action Action) (*EscalationRecord, error)
}
