package chat

import (
	"context"

	domainChat "github.com/perspectron/perspectron/pkg/domain/chat"
)

// EventHandlers bundles the message and reaction handlers behind the
// transport's chat.EventHandler interface.
type EventHandlers struct {
	Message  *MessageHandler
	Reaction *ReactionHandler
}

var _ domainChat.EventHandler = (*EventHandlers)(nil)

func (h *EventHandlers) HandleMessage(ctx context.Context, msg domainChat.Message) {
	h.Message.HandleMessage(ctx, msg)
}

func (h *EventHandlers) HandleReaction(ctx context.Context, reaction domainChat.Reaction) {
	h.Reaction.HandleReaction(ctx, reaction)
}
