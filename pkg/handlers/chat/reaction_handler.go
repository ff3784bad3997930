package chat

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/app/escalation"
	domainChat "github.com/perspectron/perspectron/pkg/domain/chat"
)

type ReactionHandler struct {
	logger   *logrus.Logger
	workflow escalation.Workflow
}

func NewReactionHandler(logger *logrus.Logger, workflow escalation.Workflow) *ReactionHandler {
	return &ReactionHandler{logger: logger, workflow: workflow}
}

// HandleReaction forwards a reaction-added event to the workflow. The
// workflow applies its own guards (bot identity, moderator channel, symbol,
// duplicate resolution); failures are contained here.
func (h *ReactionHandler) HandleReaction(ctx context.Context, reaction domainChat.Reaction) {
	if err := h.workflow.Resolve(ctx, reaction); err != nil {
		h.logger.WithError(err).WithField("message_id", reaction.MessageID).Error("failed to resolve reaction")
	}
}
