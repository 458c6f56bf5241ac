package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loantrack-core/internal/domain/entity"
	"loantrack-core/internal/domain/repository"
	"loantrack-core/internal/observability"
)

// Executor translates one validated action into one backend-store call and
// shapes the user-facing outcome. It is the only writer of financial state.
type Executor struct {
	store   repository.LoanStore
	metrics *observability.Metrics
	log     *zap.Logger
}

func NewExecutor(store repository.LoanStore, metrics *observability.Metrics, log *zap.Logger) *Executor {
	return &Executor{store: store, metrics: metrics, log: log}
}

func (e *Executor) Execute(ctx context.Context, va *entity.ValidatedAction) (*entity.ActionResult, error) {
	var result *entity.ActionResult
	var err error

	switch va.Action {
	case entity.ActionCreateLoan:
		result, err = e.createLoan(ctx, va.CreateLoan)
	case entity.ActionAddPayment:
		result, err = e.addPayment(ctx, va.AddPayment)
	case entity.ActionGetLoans:
		result, err = e.getLoans(ctx, va.GetLoans)
	case entity.ActionDeleteLoan:
		result, err = e.deleteLoan(ctx, va.DeleteLoan)
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownAction, va.Action)
	}

	if err == nil && e.metrics != nil {
		e.metrics.ActionsExecuted.WithLabelValues(string(va.Action)).Inc()
	}
	return result, err
}

func (e *Executor) createLoan(ctx context.Context, p *entity.CreateLoanParams) (*entity.ActionResult, error) {
	loan := &entity.Loan{
		ID:             uuid.NewString(),
		Name:           p.Name,
		OriginalAmount: p.Amount,
		CurrentBalance: p.Amount, // balance starts at the original amount
		TermMonths:     p.TermMonths,
		LoanDate:       p.LoanDate,
		LoanType:       p.LoanType,
		Lender:         p.Lender,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.store.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	e.log.Info("loan created",
		zap.String("loanId", loan.ID),
		zap.String("name", loan.Name),
		zap.String("amount", loan.OriginalAmount.String()),
	)
	return &entity.ActionResult{
		Message: fmt.Sprintf("Created loan %q for %s over %d months.", loan.Name, loan.OriginalAmount.StringFixed(2), loan.TermMonths),
		Data:    loan,
	}, nil
}

func (e *Executor) addPayment(ctx context.Context, p *entity.AddPaymentParams) (*entity.ActionResult, error) {
	loan, err := e.findLoan(ctx, p.LoanID, p.LoanName)
	if err != nil {
		return nil, err
	}

	payment := &entity.Payment{
		ID:          uuid.NewString(),
		LoanID:      loan.ID,
		Amount:      p.Amount,
		PaidBy:      p.PaidBy,
		PaymentDate: p.PaymentDate,
		CreatedAt:   time.Now().UTC(),
	}
	newBalance, err := e.store.RecordPayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	e.log.Info("payment recorded",
		zap.String("loanId", loan.ID),
		zap.String("amount", p.Amount.String()),
		zap.String("paidBy", p.PaidBy),
		zap.String("newBalance", newBalance.String()),
	)
	return &entity.ActionResult{
		Message: fmt.Sprintf("Recorded %s payment on %q by %s. Remaining balance: %s.",
			p.Amount.StringFixed(2), loan.Name, p.PaidBy, newBalance.StringFixed(2)),
		Data: map[string]any{
			"payment":     payment,
			"new_balance": newBalance,
		},
	}, nil
}

func (e *Executor) getLoans(ctx context.Context, p *entity.GetLoansParams) (*entity.ActionResult, error) {
	loans, err := e.store.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	if p.LoanName != "" {
		loan := ResolveLoan(loans, p.LoanName)
		if loan == nil {
			return nil, notFound(p.LoanName, len(loans))
		}
		loans = []entity.Loan{*loan}
	}

	summaries := make([]entity.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		payments, err := e.store.ListPayments(ctx, loan.ID)
		if err != nil {
			return nil, fmt.Errorf("list payments for %s: %w", loan.ID, err)
		}
		summaries = append(summaries, Summarize(loan, payments))
	}

	return &entity.ActionResult{
		Message: fmt.Sprintf("%d loan(s) on file.", len(summaries)),
		Data:    summaries,
	}, nil
}

func (e *Executor) deleteLoan(ctx context.Context, p *entity.DeleteLoanParams) (*entity.ActionResult, error) {
	loan, err := e.findLoan(ctx, p.LoanID, p.LoanName)
	if err != nil {
		return nil, err
	}
	if err := e.store.DeleteLoan(ctx, loan.ID); err != nil {
		return nil, fmt.Errorf("delete loan: %w", err)
	}

	e.log.Info("loan deleted", zap.String("loanId", loan.ID), zap.String("name", loan.Name))
	return &entity.ActionResult{
		Message: fmt.Sprintf("Deleted loan %q and its payments.", loan.Name),
		Data:    map[string]any{"id": loan.ID, "name": loan.Name},
	}, nil
}

// findLoan resolves the target by id when given, otherwise by tiered fuzzy
// name match over the current loan set.
func (e *Executor) findLoan(ctx context.Context, id, name string) (*entity.Loan, error) {
	if id != "" {
		loan, err := e.store.GetLoanByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get loan %s: %w", id, err)
		}
		return loan, nil
	}

	loans, err := e.store.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	loan := ResolveLoan(loans, name)
	if loan == nil {
		return nil, notFound(name, len(loans))
	}
	return loan, nil
}

func notFound(name string, count int) error {
	return fmt.Errorf("%w: no loan matching %q (%d loan(s) on file)", entity.ErrLoanNotFound, name, count)
}

// Summarize derives the display view for one loan: total paid, progress
// percent, last payment date, and the optional payoff projection.
func Summarize(loan entity.Loan, payments []entity.Payment) entity.LoanSummary {
	s := entity.LoanSummary{Loan: loan, TotalPaid: decimal.Zero, PaymentCount: len(payments)}

	var last string
	for _, p := range payments {
		s.TotalPaid = s.TotalPaid.Add(p.Amount)
		if p.PaymentDate > last {
			last = p.PaymentDate
		}
	}
	if last != "" {
		s.LastPaymentDate = &last
	}
	if loan.OriginalAmount.IsPositive() {
		paid := loan.OriginalAmount.Sub(loan.CurrentBalance)
		pct, _ := paid.Div(loan.OriginalAmount).Mul(decimal.NewFromInt(100)).Float64()
		s.ProgressPercent = pct
	}
	s.ProjectedPayoff = ProjectPayoff(loan.CurrentBalance, payments)
	return s
}
