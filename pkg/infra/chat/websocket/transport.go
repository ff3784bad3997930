package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/domain/chat"
)

// Settings configures the websocket chat gateway connection. Decoded from
// the chat adapter settings map in the configuration file.
type Settings struct {
	URL              string        `mapstructure:"url"`
	BotUserID        string        `mapstructure:"bot_user_id"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
}

func SettingsFromMap(raw map[string]interface{}) (Settings, error) {
	var settings Settings
	if err := mapstructure.Decode(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode websocket settings: %w", err)
	}
	if settings.URL == "" {
		return Settings{}, fmt.Errorf("websocket gateway url must be specified")
	}
	if settings.BotUserID == "" {
		return Settings{}, fmt.Errorf("bot user id must be specified")
	}
	if settings.HandshakeTimeout == 0 {
		settings.HandshakeTimeout = 10 * time.Second
	}
	if settings.CallTimeout == 0 {
		settings.CallTimeout = 10 * time.Second
	}
	return settings, nil
}

// Wire envelopes. Inbound frames are either gateway events or responses to
// an earlier call; outbound frames are calls.
type envelope struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Error    string          `json:"error,omitempty"`
	Message  *chat.Message   `json:"message,omitempty"`
	Reaction *chat.Reaction  `json:"reaction,omitempty"`
	Call     json.RawMessage `json:"call,omitempty"`
}

type call struct {
	ID        string `json:"id"`
	Op        string `json:"op"`
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
}

// Transport speaks a small JSON event protocol with a chat gateway over one
// websocket connection. It is deliberately thin: every moderation decision
// lives on the caller's side of chat.Transport.
type Transport struct {
	logger   *logrus.Logger
	settings Settings

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan envelope
}

func NewTransport(logger *logrus.Logger, settings Settings) *Transport {
	return &Transport{
		logger:   logger,
		settings: settings,
		pending:  make(map[string]chan envelope),
	}
}

var _ chat.Transport = (*Transport)(nil)

func (t *Transport) Identity() string {
	return t.settings.BotUserID
}

// Run connects to the gateway and pumps events into handler until ctx is
// cancelled or the connection drops. Each event is handled on its own
// goroutine so one suspended handler never stalls the read loop.
func (t *Transport) Run(ctx context.Context, handler chat.EventHandler) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.settings.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, t.settings.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to chat gateway: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.conn = conn
	defer func() { _ = conn.Close() }()

	t.logger.WithField("url", t.settings.URL).Info("connected to chat gateway")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("chat gateway read failed: %w", err)
		}

		switch env.Type {
		case "message":
			if env.Message == nil {
				continue
			}
			msg := *env.Message
			go handler.HandleMessage(ctx, msg)
		case "reaction_added":
			if env.Reaction == nil {
				continue
			}
			reaction := *env.Reaction
			go handler.HandleReaction(ctx, reaction)
		case "response":
			t.deliver(env)
		default:
			t.logger.WithField("type", env.Type).Debug("ignoring unknown gateway frame")
		}
	}
}

func (t *Transport) deliver(env envelope) {
	t.pendingMu.Lock()
	ch, ok := t.pending[env.ID]
	if ok {
		delete(t.pending, env.ID)
	}
	t.pendingMu.Unlock()
	if ok {
		ch <- env
	}
}

func (t *Transport) invoke(ctx context.Context, c call) (envelope, error) {
	if t.conn == nil {
		return envelope{}, fmt.Errorf("chat gateway not connected")
	}
	c.ID = uuid.NewString()

	ch := make(chan envelope, 1)
	t.pendingMu.Lock()
	t.pending[c.ID] = ch
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, c.ID)
		t.pendingMu.Unlock()
	}()

	t.writeMu.Lock()
	err := t.conn.WriteJSON(c)
	t.writeMu.Unlock()
	if err != nil {
		return envelope{}, fmt.Errorf("chat gateway write failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.settings.CallTimeout)
	defer cancel()

	select {
	case env := <-ch:
		if env.Error != "" {
			return envelope{}, fmt.Errorf("chat gateway call %s failed: %s", c.Op, env.Error)
		}
		return env, nil
	case <-ctx.Done():
		return envelope{}, fmt.Errorf("chat gateway call %s timed out: %w", c.Op, ctx.Err())
	}
}

func (t *Transport) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	env, err := t.invoke(ctx, call{Op: "fetch_message", ChannelID: channelID, MessageID: messageID})
	if err != nil {
		return nil, err
	}
	if env.Message == nil {
		return nil, fmt.Errorf("fetch_message returned no message")
	}
	return env.Message, nil
}

func (t *Transport) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	_, err := t.invoke(ctx, call{Op: "delete_message", ChannelID: ref.ChannelID, MessageID: ref.MessageID})
	return err
}

func (t *Transport) SendMessage(ctx context.Context, channelID, text string) (*chat.Message, error) {
	env, err := t.invoke(ctx, call{Op: "send_message", ChannelID: channelID, Text: text})
	if err != nil {
		return nil, err
	}
	if env.Message == nil {
		return nil, fmt.Errorf("send_message returned no message")
	}
	return env.Message, nil
}

func (t *Transport) AddReaction(ctx context.Context, ref chat.MessageRef, symbol string) error {
	_, err := t.invoke(ctx, call{Op: "add_reaction", ChannelID: ref.ChannelID, MessageID: ref.MessageID, Symbol: symbol})
	return err
}

func (t *Transport) KickMember(ctx context.Context, channelID, userID string) error {
	_, err := t.invoke(ctx, call{Op: "kick_member", ChannelID: channelID, UserID: userID})
	return err
}

func (t *Transport) BanMember(ctx context.Context, channelID, userID string) error {
	_, err := t.invoke(ctx, call{Op: "ban_member", ChannelID: channelID, UserID: userID})
	return err
}
