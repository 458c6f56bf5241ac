package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"loantrack-core/internal/domain/entity"
)

// LoanStore is the relational record store for loans and payments.
type LoanStore interface {
	CreateLoan(ctx context.Context, loan *entity.Loan) error
	ListLoans(ctx context.Context) ([]entity.Loan, error)
	GetLoanByID(ctx context.Context, id string) (*entity.Loan, error)
	ListPayments(ctx context.Context, loanID string) ([]entity.Payment, error)
	// RecordPayment inserts the payment and decrements the loan balance,
	// floored at zero, as one transaction. Returns the new balance.
	RecordPayment(ctx context.Context, p *entity.Payment) (decimal.Decimal, error)
	// DeleteLoan removes the loan and cascades removal of its payments.
	DeleteLoan(ctx context.Context, id string) error
}

// ChatLog is the append-only conversation audit log plus the single
// pending-question flag of the follow-up loop.
type ChatLog interface {
	Append(ctx context.Context, sessionID string, turn entity.ConversationTurn) error
	Recent(ctx context.Context, sessionID string, n int64) ([]entity.ConversationTurn, error)
	SetPendingQuestion(ctx context.Context, sessionID, question string) error
	ClearPendingQuestion(ctx context.Context, sessionID string) error
	PendingQuestion(ctx context.Context, sessionID string) (string, bool, error)
}

// ParseCache caches parse results keyed by command embedding. Hits are only
// valid for the same "today" the cached command was parsed under.
type ParseCache interface {
	Lookup(ctx context.Context, vector []float32, today string) (*entity.ParsedCommand, error)
	Save(ctx context.Context, command, today string, cmd *entity.ParsedCommand, vector []float32) error
}

// TokenLimiter budgets model calls per session.
type TokenLimiter interface {
	CheckLimit(ctx context.Context, sessionID string) (bool, error)
	Increment(ctx context.Context, sessionID string, calls int) error
}

// ModelProvider is the hosted language model, treated as an untrusted
// oracle: fallible, non-deterministic, and never believed without
// independent validation.
type ModelProvider interface {
	Generate(ctx context.Context, systemPrompt, userText string) (*entity.ModelResponse, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}
