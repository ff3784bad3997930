package escalation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/chat"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/infra/metrics"
)

// Workflow drives one escalation record from detection through moderator
// resolution.
//
//go:generate mockery --name=Workflow --dir=. --output=./mocks --filename=workflow_mock.go --case=underscore --with-expecter
type Workflow interface {
	// Open posts a report for target to the moderator channel and indexes the
	// resulting record. When reason is ReasonReported, reporter is the
	// reporting message; it is deleted before the report is posted, and
	// reporting a bot-authored message aborts with domain.ErrSelfReport after
	// a refusal notice to the reporter's channel.
	Open(ctx context.Context, target chat.Message, verdict moderation.Verdict, reason moderation.Reason, reporter *chat.Message) (*moderation.EscalationRecord, error)

	// Resolve applies the first recognized moderator reaction on a posted
	// report. Reactions from the bot, outside the moderator channel, on
	// non-bot messages, with unknown symbols, or on already-terminal reports
	// are ignored.
	Resolve(ctx context.Context, reaction chat.Reaction) error
}

type workflow struct {
	logger             *logrus.Logger
	transport          chat.Transport
	repo               moderation.Repository
	moderatorChannelID string
}

func NewWorkflow(
	logger *logrus.Logger,
	transport chat.Transport,
	repo moderation.Repository,
	moderatorChannelID string,
) Workflow {
	return &workflow{
		logger:             logger,
		transport:          transport,
		repo:               repo,
		moderatorChannelID: moderatorChannelID,
	}
}

func (w *workflow) Open(
	ctx context.Context,
	target chat.Message,
	verdict moderation.Verdict,
	reason moderation.Reason,
	reporter *chat.Message,
) (*moderation.EscalationRecord, error) {
	if reason == moderation.ReasonReported && reporter != nil {
		// Delete the reporting message first so the report never stays
		// visible as a call-out in the public channel.
		if err := w.transport.DeleteMessage(ctx, chat.MessageRef{
			ChannelID: reporter.ChannelID,
			MessageID: reporter.ID,
		}); err != nil {
			w.logger.WithError(err).WithField("message_id", reporter.ID).Warn("failed to delete reporting message")
		}

		if target.AuthorID == w.transport.Identity() {
			refusal := fmt.Sprintf("<@%s>, please refrain from reporting my moderation messages.", reporter.AuthorID)
			if _, err := w.transport.SendMessage(ctx, reporter.ChannelID, refusal); err != nil {
				w.logger.WithError(err).Error("failed to send self-report refusal")
			}
			return nil, domain.ErrSelfReport
		}
	}

	record := moderation.NewEscalationRecord(target.ID, target.ChannelID, target.AuthorID, target.Content, verdict, reason)
	if reporter != nil {
		record.ReporterID = reporter.AuthorID
	}

	sent, err := w.transport.SendMessage(ctx, w.moderatorChannelID, RenderReport(record))
	if err != nil {
		return nil, fmt.Errorf("failed to post report: %w", err)
	}
	record.MarkPosted(sent.ID)

	ref := chat.MessageRef{ChannelID: w.moderatorChannelID, MessageID: sent.ID}
	for _, symbol := range affordanceSymbols {
		if err := w.transport.AddReaction(ctx, ref, symbol); err != nil {
			w.logger.WithError(err).WithField("symbol", symbol).Warn("failed to add affordance reaction")
		}
	}

	if err := w.repo.Save(ctx, record); err != nil {
		// The rendered report still carries the id/channel lines, so the
		// reaction handler can fall back to parsing it.
		w.logger.WithError(err).Error("failed to index escalation record")
	}

	metrics.ReportsPosted.WithLabelValues(string(reason)).Inc()
	w.logger.WithFields(logrus.Fields{
		"record_id":  record.ID,
		"message_id": target.ID,
		"reason":     reason,
	}).Info("report posted")

	return record, nil
}

func (w *workflow) Resolve(ctx context.Context, reaction chat.Reaction) error {
	if reaction.ActorID == w.transport.Identity() {
		return nil
	}
	if reaction.ChannelID != w.moderatorChannelID {
		return nil
	}
	action := ActionForSymbol(reaction.Symbol)
	if action == moderation.ActionNone {
		return nil
	}

	record, err := w.lookupRecord(ctx, reaction)
	if err != nil {
		if errors.Is(err, domain.ErrResolutionTargetNotFound) {
			return nil
		}
		return err
	}
	if record == nil {
		return nil
	}

	resolved, err := w.repo.MarkResolved(ctx, reaction.MessageID, action)
	if err != nil {
		if domain.IsDuplicateResolution(err) {
			w.logger.WithField("report_message_id", reaction.MessageID).Debug("ignoring reaction on resolved report")
			return nil
		}
		return fmt.Errorf("failed to resolve report: %w", err)
	}

	if err := w.applyAction(ctx, resolved); err != nil {
		return err
	}

	metrics.ReportsResolved.WithLabelValues(string(action)).Inc()
	w.logger.WithFields(logrus.Fields{
		"record_id": resolved.ID,
		"action":    action,
	}).Info("report resolved")

	return nil
}

// lookupRecord finds the record for a reaction, preferring the index and
// falling back to parsing the rendered report text. A nil record with nil
// error means the reaction was not on one of our reports.
func (w *workflow) lookupRecord(ctx context.Context, reaction chat.Reaction) (*moderation.EscalationRecord, error) {
	record, err := w.repo.FindByReportMessageID(ctx, reaction.MessageID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrResolutionTargetNotFound) {
		return nil, err
	}

	report, err := w.transport.FetchMessage(ctx, reaction.ChannelID, reaction.MessageID)
	if err != nil {
		return nil, fmt.Errorf("%w: report message %s", domain.ErrResolutionTargetNotFound, reaction.MessageID)
	}
	if report.AuthorID != w.transport.Identity() {
		return nil, nil
	}
	targetID, targetChannelID, ok := ParseReport(report.Content)
	if !ok {
		return nil, nil
	}

	target, err := w.transport.FetchMessage(ctx, targetChannelID, targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: reported message %s", domain.ErrResolutionTargetNotFound, targetID)
	}

	record = moderation.NewEscalationRecord(target.ID, target.ChannelID, target.AuthorID, target.Content, moderation.Verdict{}, moderation.ReasonAutoFlagged)
	record.MarkPosted(reaction.MessageID)
	if err := w.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to re-index escalation record: %w", err)
	}
	return record, nil
}

func (w *workflow) applyAction(ctx context.Context, record *moderation.EscalationRecord) error {
	reportRef := chat.MessageRef{ChannelID: w.moderatorChannelID, MessageID: record.ReportMessageID}
	targetRef := chat.MessageRef{ChannelID: record.TargetChannelID, MessageID: record.TargetMessageID}

	switch record.Action {
	case moderation.ActionCleared:
		// No content action; just dismiss the report.
	case moderation.ActionRemoved:
		if err := w.transport.DeleteMessage(ctx, targetRef); err != nil {
			w.logger.WithError(err).WithField("message_id", record.TargetMessageID).Warn("failed to delete reported message")
		}
	case moderation.ActionKicked:
		if err := w.transport.DeleteMessage(ctx, targetRef); err != nil {
			w.logger.WithError(err).WithField("message_id", record.TargetMessageID).Warn("failed to delete reported message")
		}
		if err := w.transport.KickMember(ctx, record.TargetChannelID, record.TargetAuthorID); err != nil {
			return fmt.Errorf("failed to kick member %s: %w", record.TargetAuthorID, err)
		}
	case moderation.ActionBanned:
		if err := w.transport.DeleteMessage(ctx, targetRef); err != nil {
			w.logger.WithError(err).WithField("message_id", record.TargetMessageID).Warn("failed to delete reported message")
		}
		if err := w.transport.BanMember(ctx, record.TargetChannelID, record.TargetAuthorID); err != nil {
			return fmt.Errorf("failed to ban member %s: %w", record.TargetAuthorID, err)
		}
	}

	if err := w.transport.DeleteMessage(ctx, reportRef); err != nil {
		w.logger.WithError(err).WithField("message_id", record.ReportMessageID).Warn("failed to dismiss report message")
	}
	return nil
}
