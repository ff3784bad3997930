package chat

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/app/command"
	"github.com/perspectron/perspectron/pkg/app/escalation"
	"github.com/perspectron/perspectron/pkg/app/policy"
	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/blacklist"
	domainChat "github.com/perspectron/perspectron/pkg/domain/chat"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/domain/score"
	"github.com/perspectron/perspectron/pkg/infra/metrics"
	"github.com/perspectron/perspectron/pkg/infra/scoring"
)

// Emoji digits bucketing a [0,1] score by its first decimal, plus the
// invalid-score flag.
var scoreEmojis = []string{"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

const invalidScoreEmoji = "🚩"

type MessageHandler struct {
	logger         *logrus.Logger
	transport      domainChat.Transport
	dispatcher     command.Dispatcher
	scorer         scoring.Client
	evaluator      policy.Evaluator
	store          blacklist.Store
	workflow       escalation.Workflow
	excluded       map[string]struct{}
	scoreReactions bool
}

func NewMessageHandler(
	logger *logrus.Logger,
	transport domainChat.Transport,
	dispatcher command.Dispatcher,
	scorer scoring.Client,
	evaluator policy.Evaluator,
	store blacklist.Store,
	workflow escalation.Workflow,
	excludedChannelIDs []string,
	scoreReactions bool,
) *MessageHandler {
	excluded := make(map[string]struct{}, len(excludedChannelIDs))
	for _, id := range excludedChannelIDs {
		excluded[id] = struct{}{}
	}
	return &MessageHandler{
		logger:         logger,
		transport:      transport,
		dispatcher:     dispatcher,
		scorer:         scorer,
		evaluator:      evaluator,
		store:          store,
		workflow:       workflow,
		excluded:       excluded,
		scoreReactions: scoreReactions,
	}
}

// HandleMessage runs one inbound message through commands, blacklist,
// scoring and policy. Every failure is contained to this message.
func (h *MessageHandler) HandleMessage(ctx context.Context, msg domainChat.Message) {
	if msg.AuthorID == h.transport.Identity() {
		return
	}

	if h.dispatcher.Dispatch(ctx, msg) {
		return
	}

	if _, ok := h.excluded[msg.ChannelID]; ok {
		return
	}

	matches, err := h.store.Matches(ctx, msg.Content)
	if err != nil {
		h.logger.WithError(err).Error("blacklist match failed")
		matches = nil
	}

	vector, err := h.scorer.Score(ctx, msg.Content)
	if err != nil {
		metrics.ScoringFailures.Inc()
		h.logger.WithError(err).WithField("message_id", msg.ID).Error("scoring failed")
		// A scoring failure is not a zero score. Blacklist matches still
		// count on their own.
		if len(matches) == 0 {
			return
		}
		vector = score.Vector{}
	}
	metrics.MessagesEvaluated.Inc()

	verdict, err := h.evaluator.Evaluate(vector, matches)
	if err != nil {
		h.logger.WithError(err).WithField("message_id", msg.ID).Error("policy evaluation failed")
		if h.scoreReactions && errors.Is(err, domain.ErrInvalidScoreValue) {
			h.react(ctx, msg, invalidScoreEmoji)
		}
		return
	}

	if h.scoreReactions {
		h.react(ctx, msg, emojiForScore(vector[score.SevereToxicity]))
	}

	if !verdict.Flagged {
		return
	}
	metrics.MessagesFlagged.WithLabelValues(flagSignal(verdict)).Inc()

	if _, err := h.workflow.Open(ctx, msg, verdict, moderation.ReasonAutoFlagged, nil); err != nil {
		h.logger.WithError(err).WithField("message_id", msg.ID).Error("failed to escalate flagged message")
	}
}

func (h *MessageHandler) react(ctx context.Context, msg domainChat.Message, symbol string) {
	ref := domainChat.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}
	if err := h.transport.AddReaction(ctx, ref, symbol); err != nil {
		h.logger.WithError(err).Debug("failed to add score reaction")
	}
}

func emojiForScore(value float64) string {
	if value < 0 || value > 1 {
		return invalidScoreEmoji
	}
	bucket := int(value * 10)
	if bucket > 9 {
		bucket = 9
	}
	return scoreEmojis[bucket]
}

func flagSignal(verdict moderation.Verdict) string {
	switch {
	case len(verdict.TriggeredScores) > 0 && len(verdict.MatchedPhrases) > 0:
		return "both"
	case len(verdict.MatchedPhrases) > 0:
		return "blacklist"
	default:
		return "score"
	}
}
