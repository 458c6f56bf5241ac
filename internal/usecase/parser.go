package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loantrack-core/internal/domain/entity"
	"loantrack-core/internal/domain/repository"
	"loantrack-core/internal/observability"
)

// defaultFollowupQuestion backfills the contract when the model asks for a
// follow-up without supplying the question.
const defaultFollowupQuestion = "Could you clarify?"

type ParserConfig struct {
	// Timezone is the fixed reference timezone "today" is resolved in.
	Timezone *time.Location
	// Parties is the closed set of two canonical payer names.
	Parties []string
	// DefaultPayer is recorded when a payment does not say who paid.
	DefaultPayer string
	// ModelTimeout caps one model call.
	ModelTimeout time.Duration
}

// Parser orchestrates one command through the pipeline: budget check,
// same-day cache lookup, model call, JSON extraction, contract validation,
// per-action shape checks, follow-up normalization. The model's output is
// advisory; every guarantee is enforced here.
type Parser struct {
	provider repository.ModelProvider
	embedder repository.Embedder
	cache    repository.ParseCache
	limiter  repository.TokenLimiter
	chatLog  repository.ChatLog
	metrics  *observability.Metrics
	log      *zap.Logger
	cfg      ParserConfig

	now func() time.Time
}

func NewParser(
	provider repository.ModelProvider,
	embedder repository.Embedder,
	cache repository.ParseCache,
	limiter repository.TokenLimiter,
	chatLog repository.ChatLog,
	metrics *observability.Metrics,
	log *zap.Logger,
	cfg ParserConfig,
) *Parser {
	return &Parser{
		provider: provider,
		embedder: embedder,
		cache:    cache,
		limiter:  limiter,
		chatLog:  chatLog,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Today returns the current date as YYYY-MM-DD in the reference timezone.
func (p *Parser) Today() string {
	return p.now().In(p.cfg.Timezone).Format("2006-01-02")
}

func (p *Parser) Parse(ctx context.Context, sessionID, command string) (*entity.ParsedCommand, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("%w: command must be a non-empty string", entity.ErrInvalidRequest)
	}

	today := p.Today()

	// Any new message returns the session to idle; the follow-up loop never
	// spans more than one exchange.
	if err := p.chatLog.ClearPendingQuestion(ctx, sessionID); err != nil {
		p.log.Warn("clear pending question failed", zap.Error(err))
	}
	p.appendTurn(ctx, sessionID, entity.ConversationTurn{Role: "user", Content: command, Timestamp: p.now()})

	allowed, err := p.limiter.CheckLimit(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("limiter check failed: %w", err)
	}
	if !allowed {
		return nil, entity.ErrRateLimitExceeded
	}

	// Cache is best-effort: embedding or lookup failure falls through to the
	// model, never to the caller.
	vector := p.embed(ctx, command)
	if vector != nil {
		if cached, err := p.cache.Lookup(ctx, vector, today); err == nil && cached != nil {
			p.metrics.CacheHits.Inc()
			p.finalize(ctx, sessionID, command, cached)
			return cached, nil
		}
	}

	prompt := BuildSystemPrompt(today, p.cfg.Parties, p.cfg.DefaultPayer) + promptOverride

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	p.metrics.ModelCalls.Inc()
	resp, err := p.provider.Generate(modelCtx, prompt, command)
	// The budget meters model calls, so it is consumed here regardless of
	// what the call returned, and independent of the cache machinery.
	if ierr := p.limiter.Increment(ctx, sessionID, 1); ierr != nil {
		p.log.Warn("limiter increment failed", zap.Error(ierr))
	}
	if err != nil {
		p.metrics.ParseFailures.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamTransport, err)
	}

	raw := ExtractCommandJSON(resp)
	if raw == nil {
		p.metrics.ParseFailures.WithLabelValues("no_json").Inc()
		return nil, entity.ErrNoJSON
	}
	if err := ValidateContract(raw); err != nil {
		p.metrics.ParseFailures.WithLabelValues("contract").Inc()
		return nil, err
	}

	cmd := commandFromRaw(raw)

	if !cmd.NeedFollowup {
		if err := checkActionShape(cmd); err != nil {
			p.metrics.ParseFailures.WithLabelValues("shape").Inc()
			return nil, err
		}
		if err := checkCreateLoanComplete(cmd); err != nil {
			p.metrics.ParseFailures.WithLabelValues("incomplete").Inc()
			return nil, err
		}
	}

	normalizeFollowup(cmd)

	p.metrics.CommandsParsed.WithLabelValues(string(cmd.Action)).Inc()
	p.finalize(ctx, sessionID, command, cmd)

	// The cache write happens off the request path, with a fresh context
	// since the request one is about to expire.
	if vector != nil {
		go func() {
			bgCtx, bgCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer bgCancel()
			if err := p.cache.Save(bgCtx, command, today, cmd, vector); err != nil {
				p.log.Warn("parse cache save failed", zap.Error(err))
			}
		}()
	}

	return cmd, nil
}

func (p *Parser) embed(ctx context.Context, command string) []float32 {
	vector, err := p.embedder.CreateEmbedding(ctx, command)
	if err != nil {
		p.log.Warn("embedding failed, skipping cache", zap.Error(err))
		return nil
	}
	return vector
}

// finalize records the assistant turn and keeps the pending-question flag in
// step with the parse outcome.
func (p *Parser) finalize(ctx context.Context, sessionID, command string, cmd *entity.ParsedCommand) {
	p.appendTurn(ctx, sessionID, entity.ConversationTurn{
		Role:      "assistant",
		Content:   cmd.Message,
		Parsed:    cmd,
		Timestamp: p.now(),
	})
	if cmd.NeedFollowup && cmd.FollowupQuestion != nil {
		if err := p.chatLog.SetPendingQuestion(ctx, sessionID, *cmd.FollowupQuestion); err != nil {
			p.log.Warn("set pending question failed", zap.Error(err))
		}
	}
}

func (p *Parser) appendTurn(ctx context.Context, sessionID string, turn entity.ConversationTurn) {
	if err := p.chatLog.Append(ctx, sessionID, turn); err != nil {
		p.log.Warn("chat log append failed", zap.Error(err))
	}
}

func commandFromRaw(raw map[string]any) *entity.ParsedCommand {
	cmd := &entity.ParsedCommand{
		Action:     entity.Action(raw["action"].(string)),
		Parameters: map[string]any{},
		Message:    raw["message"].(string),
	}
	if nf, ok := raw["need_followup"].(bool); ok {
		cmd.NeedFollowup = nf
	}
	if params, ok := raw["parameters"].(map[string]any); ok {
		cmd.Parameters = params
	}
	if q, ok := raw["followup_question"].(string); ok {
		cmd.FollowupQuestion = &q
	}
	return cmd
}

// checkActionShape is the lightweight per-action gate on the model's
// parameters, applied only when the model claims the command is complete.
func checkActionShape(cmd *entity.ParsedCommand) error {
	switch cmd.Action {
	case entity.ActionCreateLoan, entity.ActionAddPayment:
		if _, ok := cmd.Parameters["loan_name"].(string); !ok {
			return fmt.Errorf("%w: %s requires loan_name (string)", entity.ErrMissingFields, cmd.Action)
		}
		if _, ok := cmd.Parameters["amount"].(float64); !ok {
			return fmt.Errorf("%w: %s requires amount (number)", entity.ErrMissingFields, cmd.Action)
		}
	case entity.ActionDeleteLoan:
		_, hasName := cmd.Parameters["loan_name"].(string)
		_, hasID := cmd.Parameters["loan_id"].(string)
		if !hasName && !hasID {
			return fmt.Errorf("%w: delete_loan requires loan_name or loan_id", entity.ErrMissingFields)
		}
	}
	return nil
}

// checkCreateLoanComplete requires all four create_loan fields to be truthy.
// Deliberately independent of checkActionShape: the two gates overlap but
// guard different failure modes, and the action endpoint can be reached
// without either.
func checkCreateLoanComplete(cmd *entity.ParsedCommand) error {
	if cmd.Action != entity.ActionCreateLoan {
		return nil
	}
	var missing []string
	for _, field := range []string{"loan_name", "amount", "loan_date", "term_months"} {
		if !truthy(cmd.Parameters[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: create_loan needs %s", entity.ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x) != ""
	case float64:
		return x != 0
	case bool:
		return x
	case nil:
		return false
	default:
		return true
	}
}

func normalizeFollowup(cmd *entity.ParsedCommand) {
	if cmd.NeedFollowup {
		if cmd.FollowupQuestion == nil || strings.TrimSpace(*cmd.FollowupQuestion) == "" {
			q := defaultFollowupQuestion
			cmd.FollowupQuestion = &q
		}
		return
	}
	cmd.FollowupQuestion = nil
}
