package chat

import "context"

// Message is one inbound or fetched chat message.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
}

// Reaction is a reaction-added event on a message.
type Reaction struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ActorID   string `json:"actor_id"`
	Symbol    string `json:"symbol"`
}

// MessageRef identifies a message for delete/react operations.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// EventHandler receives inbound chat events. Each event is handled as an
// independent unit of work; implementations must contain their own failures.
type EventHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandleReaction(ctx context.Context, reaction Reaction)
}

// Transport is the chat backend collaborator. Implementations are thin I/O
// adapters; all moderation decisions stay on this side of the interface.
//
//go:generate mockery --name=Transport --dir=. --output=./mocks --filename=transport_mock.go --case=underscore --with-expecter
type Transport interface {
	// Identity returns the bot's own user id, used by self-guards.
	Identity() string

	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendMessage(ctx context.Context, channelID, text string) (*Message, error)
	AddReaction(ctx context.Context, ref MessageRef, symbol string) error
	KickMember(ctx context.Context, channelID, userID string) error
	BanMember(ctx context.Context, channelID, userID string) error
}
