package chat

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/perspectron/perspectron/pkg/domain"
	domainChat "github.com/perspectron/perspectron/pkg/domain/chat"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/domain/score"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Identity() string {
	return m.Called().String(0)
}

func (m *mockTransport) FetchMessage(ctx context.Context, channelID, messageID string) (*domainChat.Message, error) {
	args := m.Called(ctx, channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainChat.Message), args.Error(1)
}

func (m *mockTransport) DeleteMessage(ctx context.Context, ref domainChat.MessageRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockTransport) SendMessage(ctx context.Context, channelID, text string) (*domainChat.Message, error) {
	args := m.Called(ctx, channelID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainChat.Message), args.Error(1)
}

func (m *mockTransport) AddReaction(ctx context.Context, ref domainChat.MessageRef, symbol string) error {
	return m.Called(ctx, ref, symbol).Error(0)
}

func (m *mockTransport) KickMember(ctx context.Context, channelID, userID string) error {
	return m.Called(ctx, channelID, userID).Error(0)
}

func (m *mockTransport) BanMember(ctx context.Context, channelID, userID string) error {
	return m.Called(ctx, channelID, userID).Error(0)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg domainChat.Message) bool {
	return m.Called(ctx, msg).Bool(0)
}

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, text string) (score.Vector, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(score.Vector), args.Error(1)
}

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(vector score.Vector, blacklistMatches []string) (moderation.Verdict, error) {
	args := m.Called(vector, blacklistMatches)
	return args.Get(0).(moderation.Verdict), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Add(ctx context.Context, phrase string) (bool, error) {
	args := m.Called(ctx, phrase)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Remove(ctx context.Context, phrase string) (bool, error) {
	args := m.Called(ctx, phrase)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) Matches(ctx context.Context, text string) ([]string, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockWorkflow struct {
	mock.Mock
}

func (m *mockWorkflow) Open(ctx context.Context, target domainChat.Message, verdict moderation.Verdict, reason moderation.Reason, reporter *domainChat.Message) (*moderation.EscalationRecord, error) {
	args := m.Called(ctx, target, verdict, reason, reporter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*moderation.EscalationRecord), args.Error(1)
}

func (m *mockWorkflow) Resolve(ctx context.Context, reaction domainChat.Reaction) error {
	return m.Called(ctx, reaction).Error(0)
}

type handlerFixture struct {
	transport  *mockTransport
	dispatcher *mockDispatcher
	scorer     *mockScorer
	evaluator  *mockEvaluator
	store      *mockStore
	workflow   *mockWorkflow
}

func newHandler(excluded []string, scoreReactions bool) (*MessageHandler, *handlerFixture) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	f := &handlerFixture{
		transport:  new(mockTransport),
		dispatcher: new(mockDispatcher),
		scorer:     new(mockScorer),
		evaluator:  new(mockEvaluator),
		store:      new(mockStore),
		workflow:   new(mockWorkflow),
	}
	f.transport.On("Identity").Return("bot-1")
	handler := NewMessageHandler(logger, f.transport, f.dispatcher, f.scorer, f.evaluator, f.store, f.workflow, excluded, scoreReactions)
	return handler, f
}

func inbound(content string) domainChat.Message {
	return domainChat.Message{ID: "10", ChannelID: "general", AuthorID: "user-1", Content: content}
}

func TestHandleMessage_SkipsOwnMessages(t *testing.T) {
	handler, f := newHandler(nil, false)

	handler.HandleMessage(context.Background(), domainChat.Message{ID: "10", ChannelID: "general", AuthorID: "bot-1", Content: "report text"})

	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
}

func TestHandleMessage_CommandsShortCircuitScoring(t *testing.T) {
	handler, f := newHandler(nil, false)
	msg := inbound("!bl show")

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(true)

	handler.HandleMessage(context.Background(), msg)

	f.scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
	f.evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
}

func TestHandleMessage_ExcludedChannelSkipsModeration(t *testing.T) {
	handler, f := newHandler([]string{"general"}, false)
	msg := inbound("whatever")

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)

	handler.HandleMessage(context.Background(), msg)

	f.scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything)
}

func TestHandleMessage_FlaggedMessageOpensEscalation(t *testing.T) {
	handler, f := newHandler(nil, false)
	msg := inbound("you are awful")
	vector := score.Vector{score.SevereToxicity: 0.9}
	verdict := moderation.Verdict{Flagged: true, Vector: vector}

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return([]string{}, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(vector, nil)
	f.evaluator.On("Evaluate", vector, []string{}).Return(verdict, nil)
	f.workflow.On("Open", mock.Anything, msg, verdict, moderation.ReasonAutoFlagged, (*domainChat.Message)(nil)).
		Return(moderation.NewEscalationRecord(msg.ID, msg.ChannelID, msg.AuthorID, msg.Content, verdict, moderation.ReasonAutoFlagged), nil)

	handler.HandleMessage(context.Background(), msg)

	f.workflow.AssertExpectations(t)
}

func TestHandleMessage_CleanMessageStaysPut(t *testing.T) {
	handler, f := newHandler(nil, false)
	msg := inbound("have a nice day")
	vector := score.Vector{score.SevereToxicity: 0.02}

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return([]string{}, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(vector, nil)
	f.evaluator.On("Evaluate", vector, []string{}).Return(moderation.Verdict{Vector: vector}, nil)

	handler.HandleMessage(context.Background(), msg)

	f.workflow.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_ScoringFailureWithoutBlacklistStops(t *testing.T) {
	handler, f := newHandler(nil, false)
	msg := inbound("anything")

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return([]string{}, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(nil, domain.ErrScoringService)

	handler.HandleMessage(context.Background(), msg)

	f.evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
	f.workflow.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_ScoringFailureWithBlacklistStillFlags(t *testing.T) {
	handler, f := newHandler(nil, false)
	msg := inbound("contains a banned phrase")
	matches := []string{"banned phrase"}
	verdict := moderation.Verdict{Flagged: true, MatchedPhrases: matches, Vector: score.Vector{}}

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return(matches, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(nil, domain.ErrScoringService)
	f.evaluator.On("Evaluate", score.Vector{}, matches).Return(verdict, nil)
	f.workflow.On("Open", mock.Anything, msg, verdict, moderation.ReasonAutoFlagged, (*domainChat.Message)(nil)).
		Return(moderation.NewEscalationRecord(msg.ID, msg.ChannelID, msg.AuthorID, msg.Content, verdict, moderation.ReasonAutoFlagged), nil)

	handler.HandleMessage(context.Background(), msg)

	f.workflow.AssertExpectations(t)
}

func TestHandleMessage_ScoreReactionBucketsSevereToxicity(t *testing.T) {
	handler, f := newHandler(nil, true)
	msg := inbound("borderline")
	vector := score.Vector{score.SevereToxicity: 0.42}

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return([]string{}, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(vector, nil)
	f.evaluator.On("Evaluate", vector, []string{}).Return(moderation.Verdict{Vector: vector}, nil)
	f.transport.On("AddReaction", mock.Anything, domainChat.MessageRef{ChannelID: "general", MessageID: "10"}, "4️⃣").Return(nil)

	handler.HandleMessage(context.Background(), msg)

	f.transport.AssertExpectations(t)
}

func TestHandleMessage_InvalidScoreGetsFlagEmoji(t *testing.T) {
	handler, f := newHandler(nil, true)
	msg := inbound("weird")
	vector := score.Vector{score.SevereToxicity: 1.3}

	f.dispatcher.On("Dispatch", mock.Anything, msg).Return(false)
	f.store.On("Matches", mock.Anything, msg.Content).Return([]string{}, nil)
	f.scorer.On("Score", mock.Anything, msg.Content).Return(vector, nil)
	f.evaluator.On("Evaluate", vector, []string{}).Return(moderation.Verdict{}, domain.NewInvalidScoreError("SEVERE_TOXICITY", 1.3))
	f.transport.On("AddReaction", mock.Anything, domainChat.MessageRef{ChannelID: "general", MessageID: "10"}, invalidScoreEmoji).Return(nil)

	handler.HandleMessage(context.Background(), msg)

	f.transport.AssertExpectations(t)
	f.workflow.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEmojiForScore(t *testing.T) {
	assert.Equal(t, "0️⃣", emojiForScore(0.0))
	assert.Equal(t, "0️⃣", emojiForScore(0.09))
	assert.Equal(t, "6️⃣", emojiForScore(0.69))
	assert.Equal(t, "9️⃣", emojiForScore(0.95))
	assert.Equal(t, "9️⃣", emojiForScore(1.0))
	assert.Equal(t, invalidScoreEmoji, emojiForScore(-0.1))
	assert.Equal(t, invalidScoreEmoji, emojiForScore(1.1))
}

func TestFlagSignal(t *testing.T) {
	assert.Equal(t, "score", flagSignal(moderation.Verdict{TriggeredScores: []moderation.TriggeredScore{{}}}))
	assert.Equal(t, "blacklist", flagSignal(moderation.Verdict{MatchedPhrases: []string{"x"}}))
	assert.Equal(t, "both", flagSignal(moderation.Verdict{TriggeredScores: []moderation.TriggeredScore{{}}, MatchedPhrases: []string{"x"}}))
}
