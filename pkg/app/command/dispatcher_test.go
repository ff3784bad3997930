package command

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/perspectron/perspectron/pkg/app/regression"
	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/chat"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/domain/score"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Identity() string {
	return m.Called().String(0)
}

func (m *mockTransport) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	args := m.Called(ctx, channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *mockTransport) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockTransport) SendMessage(ctx context.Context, channelID, text string) (*chat.Message, error) {
	args := m.Called(ctx, channelID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Message), args.Error(1)
}

func (m *mockTransport) AddReaction(ctx context.Context, ref chat.MessageRef, symbol string) error {
	return m.Called(ctx, ref, symbol).Error(0)
}

func (m *mockTransport) KickMember(ctx context.Context, channelID, userID string) error {
	return m.Called(ctx, channelID, userID).Error(0)
}

func (m *mockTransport) BanMember(ctx context.Context, channelID, userID string) error {
	return m.Called(ctx, channelID, userID).Error(0)
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

func (m *mockWorkflow) Open(ctx context.Context, target chat.Message, verdict moderation.Verdict, reason moderation.Reason, reporter *chat.Message) (*moderation.EscalationRecord, error) {
	args := m.Called(ctx, target, verdict, reason, reporter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*moderation.EscalationRecord), args.Error(1)
}

func (m *mockWorkflow) Resolve(ctx context.Context, reaction chat.Reaction) error {
	return m.Called(ctx, reaction).Error(0)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context) (regression.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(regression.Summary), args.Error(1)
}

type dispatcherFixture struct {
	transport *mockTransport
	scorer    *mockScorer
	evaluator *mockEvaluator
	store     *mockStore
	workflow  *mockWorkflow
	runner    *mockRunner
	dispatch  Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	f := &dispatcherFixture{
		transport: new(mockTransport),
		scorer:    new(mockScorer),
		evaluator: new(mockEvaluator),
		store:     new(mockStore),
		workflow:  new(mockWorkflow),
		runner:    new(mockRunner),
	}
	f.dispatch = NewDispatcher(logger, f.transport, f.scorer, f.evaluator, f.store, f.workflow, f.runner)
	return f
}

func userMessage(content string) chat.Message {
	return chat.Message{ID: "10", ChannelID: "general", AuthorID: "user-1", Content: content}
}

func TestDispatch_NonCommandPassesThrough(t *testing.T) {
	f := newDispatcherFixture()

	assert.False(t, f.dispatch.Dispatch(context.Background(), userMessage("just chatting")))
	assert.False(t, f.dispatch.Dispatch(context.Background(), userMessage("!unknown thing")))
	// A bang that only resembles a command body keeps flowing to scoring.
	assert.False(t, f.dispatch.Dispatch(context.Background(), userMessage("!reporting for duty")))

	f.transport.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ReportOpensEscalation(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!report 42")
	target := &chat.Message{ID: "42", ChannelID: "general", AuthorID: "user-2", Content: "rude"}

	f.transport.On("FetchMessage", mock.Anything, "general", "42").Return(target, nil)
	f.workflow.On("Open", mock.Anything, *target, moderation.Verdict{}, moderation.ReasonReported, &msg).
		Return(moderation.NewEscalationRecord("42", "general", "user-2", "rude", moderation.Verdict{}, moderation.ReasonReported), nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.workflow.AssertExpectations(t)
}

func TestDispatch_ReportUnknownTargetReplies(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!report 9999")

	f.transport.On("FetchMessage", mock.Anything, "general", "9999").Return(nil, domain.ErrResolutionTargetNotFound)
	f.transport.On("SendMessage", mock.Anything, "general", "could not find message 9999 in this channel").
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.transport.AssertExpectations(t)
	f.workflow.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ReportSelfReportStaysQuiet(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!report 42")
	target := &chat.Message{ID: "42", ChannelID: "general", AuthorID: "bot-1", Content: "report text"}

	f.transport.On("FetchMessage", mock.Anything, "general", "42").Return(target, nil)
	f.workflow.On("Open", mock.Anything, *target, moderation.Verdict{}, moderation.ReasonReported, &msg).
		Return(nil, domain.ErrSelfReport)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	// The workflow already notified the reporter; no extra error reply.
	f.transport.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_EvalRendersVerdict(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!eval you are awful")
	vector := score.Vector{score.SevereToxicity: 0.91}
	verdict := moderation.Verdict{Flagged: true, Vector: vector}

	f.scorer.On("Score", mock.Anything, "you are awful").Return(vector, nil)
	f.store.On("Matches", mock.Anything, "you are awful").Return([]string{}, nil)
	f.evaluator.On("Evaluate", vector, []string{}).Return(verdict, nil)

	var reply string
	f.transport.On("SendMessage", mock.Anything, "general", mock.MatchedBy(func(text string) bool {
		reply = text
		return true
	})).Return(&chat.Message{ID: "11"}, nil)

	require.True(t, f.dispatch.Dispatch(context.Background(), msg))
	assert.Contains(t, reply, "flagged")
	assert.Contains(t, reply, "SEVERE_TOXICITY")
	assert.Contains(t, reply, "0.91")
}

func TestDispatch_EvalScoringFailureReplies(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!eval anything")

	f.scorer.On("Score", mock.Anything, "anything").Return(nil, domain.ErrScoringService)
	f.transport.On("SendMessage", mock.Anything, "general", "scoring request failed").
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.transport.AssertExpectations(t)
}

func TestDispatch_TestRunsRegressionCorpus(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!test")
	summary := regression.Summary{Total: 3, Passed: 2, Failed: 1, Mismatches: []string{`mismatch: "hi" expected flagged=true got flagged=false`}}

	f.runner.On("Run", mock.Anything).Return(summary, nil)
	f.transport.On("SendMessage", mock.Anything, "general", summary.Render()).
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.runner.AssertExpectations(t)
	f.transport.AssertExpectations(t)
}

func TestDispatch_BlacklistAdd(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!bl add bad phrase")

	f.store.On("Add", mock.Anything, "bad phrase").Return(true, nil)
	f.transport.On("SendMessage", mock.Anything, "general", `added "bad phrase" to the blacklist`).
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.store.AssertExpectations(t)
}

func TestDispatch_BlacklistAddDuplicate(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!bl add bad phrase")

	f.store.On("Add", mock.Anything, "bad phrase").Return(false, nil)
	f.transport.On("SendMessage", mock.Anything, "general", `"bad phrase" is already blacklisted`).
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.transport.AssertExpectations(t)
}

func TestDispatch_BlacklistDelAbsent(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!bl del never added")

	f.store.On("Remove", mock.Anything, "never added").Return(false, nil)
	f.transport.On("SendMessage", mock.Anything, "general", `"never added" is not on the blacklist`).
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.transport.AssertExpectations(t)
}

func TestDispatch_BlacklistShow(t *testing.T) {
	f := newDispatcherFixture()
	msg := userMessage("!bl show")

	f.store.On("List", mock.Anything).Return([]string{"alpha", "beta"}, nil)
	f.transport.On("SendMessage", mock.Anything, "general", "blacklist:\nalpha\nbeta").
		Return(&chat.Message{ID: "11"}, nil)

	assert.True(t, f.dispatch.Dispatch(context.Background(), msg))
	f.transport.AssertExpectations(t)
}

func TestDispatch_BlacklistUsage(t *testing.T) {
	for _, content := range []string{"!bl", "!bl frobnicate", "!bl add", "!bl del"} {
		f := newDispatcherFixture()
		msg := userMessage(content)

		f.transport.On("SendMessage", mock.Anything, "general", blUsage).
			Return(&chat.Message{ID: "11"}, nil)

		assert.True(t, f.dispatch.Dispatch(context.Background(), msg), content)
		f.transport.AssertExpectations(t)
		f.store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
		f.store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	}
}
