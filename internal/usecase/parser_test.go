package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loantrack-core/internal/domain/entity"
	"loantrack-core/internal/logger"
	"loantrack-core/internal/observability"
)

// fakeProvider substitutes a deterministic oracle for the hosted model.
type fakeProvider struct {
	resp *entity.ModelResponse
	err  error

	gotPrompt string
	gotText   string
	calls     int
}

func (f *fakeProvider) Generate(_ context.Context, systemPrompt, userText string) (*entity.ModelResponse, error) {
	f.calls++
	f.gotPrompt = systemPrompt
	f.gotText = userText
	return f.resp, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeCache struct {
	hit *entity.ParsedCommand
}

func (f *fakeCache) Lookup(_ context.Context, _ []float32, _ string) (*entity.ParsedCommand, error) {
	return f.hit, nil
}

func (f *fakeCache) Save(_ context.Context, _, _ string, _ *entity.ParsedCommand, _ []float32) error {
	return nil
}

type fakeLimiter struct {
	allowed    bool
	increments int
}

func (f *fakeLimiter) CheckLimit(_ context.Context, _ string) (bool, error) { return f.allowed, nil }

func (f *fakeLimiter) Increment(_ context.Context, _ string, calls int) error {
	f.increments += calls
	return nil
}

type fakeChatLog struct {
	turns   []entity.ConversationTurn
	pending map[string]string
}

func newFakeChatLog() *fakeChatLog {
	return &fakeChatLog{pending: map[string]string{}}
}

func (f *fakeChatLog) Append(_ context.Context, _ string, turn entity.ConversationTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeChatLog) Recent(_ context.Context, _ string, _ int64) ([]entity.ConversationTurn, error) {
	return f.turns, nil
}

func (f *fakeChatLog) SetPendingQuestion(_ context.Context, sessionID, q string) error {
	f.pending[sessionID] = q
	return nil
}

func (f *fakeChatLog) ClearPendingQuestion(_ context.Context, sessionID string) error {
	delete(f.pending, sessionID)
	return nil
}

func (f *fakeChatLog) PendingQuestion(_ context.Context, sessionID string) (string, bool, error) {
	q, ok := f.pending[sessionID]
	return q, ok, nil
}

type parserFixture struct {
	parser   *Parser
	provider *fakeProvider
	cache    *fakeCache
	limiter  *fakeLimiter
	chatLog  *fakeChatLog
}

func newParserFixture(t *testing.T, resp *entity.ModelResponse, provErr error) *parserFixture {
	f := &parserFixture{
		provider: &fakeProvider{resp: resp, err: provErr},
		cache:    &fakeCache{},
		limiter:  &fakeLimiter{allowed: true},
		chatLog:  newFakeChatLog(),
	}
	f.parser = NewParser(
		f.provider,
		&fakeEmbedder{vec: []float32{0.1, 0.2}},
		f.cache,
		f.limiter,
		f.chatLog,
		observability.New(),
		logger.NewTestLogger(t),
		ParserConfig{
			Timezone:     time.UTC,
			Parties:      []string{"Alex", "Sam"},
			DefaultPayer: "Alex",
			ModelTimeout: 5 * time.Second,
		},
	)
	f.parser.now = func() time.Time { return time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC) }
	return f
}

func modelJSON(s string) *entity.ModelResponse {
	return &entity.ModelResponse{OutputText: s}
}

func TestParse_CompleteCreateLoan(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "create_loan",
		"parameters": {"loan_name": "Couch", "amount": 757.74, "loan_date": "2025-08-23", "term_months": 48},
		"message": "Creating loan",
		"need_followup": false
	}`), nil)

	cmd, err := f.parser.Parse(context.Background(), "s1", `Create a loan for "Couch" on 2025-08-23 for 757.74, 48 months`)
	require.NoError(t, err)

	assert.Equal(t, entity.ActionCreateLoan, cmd.Action)
	assert.False(t, cmd.NeedFollowup)
	assert.Nil(t, cmd.FollowupQuestion)
	assert.Equal(t, "Couch", cmd.Parameters["loan_name"])
	assert.Equal(t, 757.74, cmd.Parameters["amount"])
	assert.Equal(t, "2025-08-23", cmd.Parameters["loan_date"])
	assert.Equal(t, float64(48), cmd.Parameters["term_months"])
}

func TestParse_PromptCarriesTodayAndOverride(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{"action":"get_loans","parameters":{},"message":"ok","need_followup":false}`), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "show my loans")
	require.NoError(t, err)

	assert.Contains(t, f.provider.gotPrompt, "Today's date is: 2025-08-30")
	assert.Contains(t, f.provider.gotPrompt, "OVERRIDE:")
	assert.Equal(t, "show my loans", f.provider.gotText)
}

func TestParse_FollowupDefersAndSetsPendingQuestion(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "create_loan",
		"parameters": {},
		"message": "Need details",
		"need_followup": true,
		"followup_question": "What are the loan name, amount, date, and term?"
	}`), nil)

	cmd, err := f.parser.Parse(context.Background(), "s1", "I'd like to add a loan")
	require.NoError(t, err)

	assert.Equal(t, entity.ActionCreateLoan, cmd.Action)
	assert.True(t, cmd.NeedFollowup)
	require.NotNil(t, cmd.FollowupQuestion)
	assert.Contains(t, *cmd.FollowupQuestion, "loan name")

	q, ok := f.chatLog.pending["s1"]
	require.True(t, ok)
	assert.Equal(t, *cmd.FollowupQuestion, q)
}

func TestParse_FollowupQuestionDefaulted(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "add_payment",
		"parameters": {},
		"message": "Need the amount",
		"need_followup": true
	}`), nil)

	cmd, err := f.parser.Parse(context.Background(), "s1", "log a payment")
	require.NoError(t, err)
	require.NotNil(t, cmd.FollowupQuestion)
	assert.Equal(t, defaultFollowupQuestion, *cmd.FollowupQuestion)
}

func TestParse_FollowupQuestionForcedNilWhenNotNeeded(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "get_loans",
		"parameters": {},
		"message": "ok",
		"need_followup": false,
		"followup_question": "stray question"
	}`), nil)

	cmd, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.NoError(t, err)
	assert.Nil(t, cmd.FollowupQuestion)
}

func TestParse_NextMessageClearsPendingQuestion(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{"action":"get_loans","parameters":{},"message":"ok","need_followup":false}`), nil)
	f.chatLog.pending["s1"] = "What amount?"

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.NoError(t, err)

	_, ok := f.chatLog.pending["s1"]
	assert.False(t, ok, "any new message returns the session to idle")
}

func TestParse_EmptyCommand(t *testing.T) {
	f := newParserFixture(t, nil, nil)
	_, err := f.parser.Parse(context.Background(), "s1", "   ")
	require.ErrorIs(t, err, entity.ErrInvalidRequest)
	assert.Zero(t, f.provider.calls, "no upstream call on input error")
}

func TestParse_RateLimited(t *testing.T) {
	f := newParserFixture(t, nil, nil)
	f.limiter.allowed = false

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.ErrorIs(t, err, entity.ErrRateLimitExceeded)
	assert.Zero(t, f.provider.calls)
}

func TestParse_TransportError(t *testing.T) {
	f := newParserFixture(t, nil, errors.New("503 service overloaded"))

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.ErrorIs(t, err, entity.ErrUpstreamTransport)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 1, f.provider.calls, "one call, no automatic retry")
}

func TestParse_NonJSONUpstream(t *testing.T) {
	f := newParserFixture(t, modelJSON("I'm sorry, I can't help with that."), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	assert.ErrorIs(t, err, entity.ErrNoJSON)
}

func TestParse_ContractViolation(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{"action":"get_loans","need_followup":"yes"}`), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	assert.ErrorIs(t, err, entity.ErrContractViolation)
}

func TestParse_ShapeCheck_AddPaymentNeedsLoanNameAndAmount(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "add_payment",
		"parameters": {"loan_name": "Couch"},
		"message": "ok",
		"need_followup": false
	}`), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "pay on the couch")
	require.ErrorIs(t, err, entity.ErrMissingFields)
	assert.Contains(t, err.Error(), "amount")
}

func TestParse_CreateLoanFourFieldGate(t *testing.T) {
	// Passes the weak shape check (loan_name + amount present) but fails the
	// dedicated four-field completeness gate.
	f := newParserFixture(t, modelJSON(`{
		"action": "create_loan",
		"parameters": {"loan_name": "Couch", "amount": 757.74, "loan_date": "", "term_months": 0},
		"message": "ok",
		"need_followup": false
	}`), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "add a couch loan for 757.74")
	require.ErrorIs(t, err, entity.ErrMissingFields)
	assert.Contains(t, err.Error(), "loan_date")
	assert.Contains(t, err.Error(), "term_months")
}

func TestParse_UnknownActionPassesThrough(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{
		"action": "unknown",
		"parameters": {},
		"message": "I can create loans, add payments, list loans, or delete loans.",
		"need_followup": false
	}`), nil)

	cmd, err := f.parser.Parse(context.Background(), "s1", "what's the weather")
	require.NoError(t, err)
	assert.Equal(t, entity.ActionUnknown, cmd.Action)
	assert.False(t, cmd.NeedFollowup)
}

func TestParse_CacheHitSkipsModel(t *testing.T) {
	cached := &entity.ParsedCommand{
		Action:     entity.ActionGetLoans,
		Parameters: map[string]any{},
		Message:    "cached",
	}
	f := newParserFixture(t, nil, errors.New("model must not be called"))
	f.cache.hit = cached

	cmd, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.NoError(t, err)
	assert.Equal(t, "cached", cmd.Message)
	assert.Zero(t, f.provider.calls)
	assert.Zero(t, f.limiter.increments, "a cache hit makes no model call to meter")
}

func TestParse_EmbedderFailureStillParses(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{"action":"get_loans","parameters":{},"message":"ok","need_followup":false}`), nil)
	f.parser.embedder = &fakeEmbedder{err: errors.New("embedder down")}

	cmd, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.NoError(t, err)
	assert.Equal(t, entity.ActionGetLoans, cmd.Action)
	// Budget accounting is independent of the cache machinery: the model
	// call must consume budget even while the embedder is down.
	assert.Equal(t, 1, f.limiter.increments)
}

func TestParse_BudgetConsumedOnTransportFailure(t *testing.T) {
	f := newParserFixture(t, nil, errors.New("503 service overloaded"))

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.ErrorIs(t, err, entity.ErrUpstreamTransport)
	assert.Equal(t, 1, f.limiter.increments)
}

func TestParse_AuditTrail(t *testing.T) {
	f := newParserFixture(t, modelJSON(`{"action":"get_loans","parameters":{},"message":"2 loans","need_followup":false}`), nil)

	_, err := f.parser.Parse(context.Background(), "s1", "show loans")
	require.NoError(t, err)

	require.Len(t, f.chatLog.turns, 2)
	assert.Equal(t, "user", f.chatLog.turns[0].Role)
	assert.Equal(t, "show loans", f.chatLog.turns[0].Content)
	assert.Equal(t, "assistant", f.chatLog.turns[1].Role)
	require.NotNil(t, f.chatLog.turns[1].Parsed)
	assert.Equal(t, entity.ActionGetLoans, f.chatLog.turns[1].Parsed.Action)
}
