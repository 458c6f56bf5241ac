package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is a tracked debt. Dates are calendar dates in the reference
// timezone, stored as YYYY-MM-DD with no time component.
type Loan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TermMonths     int             `json:"term_months"`
	LoanDate       string          `json:"loan_date"`
	LoanType       string          `json:"loan_type"`
	Lender         string          `json:"lender,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Payment is a single repayment against a loan. Payments are never mutated;
// they go away only when their loan is deleted.
type Payment struct {
	ID          string          `json:"id"`
	LoanID      string          `json:"loan_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paid_by"`
	PaymentDate string          `json:"payment_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LoanSummary is the derived view get_loans returns. ProjectedPayoff is nil
// when payment history is insufficient to estimate one.
type LoanSummary struct {
	Loan
	TotalPaid       decimal.Decimal `json:"total_paid"`
	ProgressPercent float64         `json:"progress_percent"`
	PaymentCount    int             `json:"payment_count"`
	LastPaymentDate *string         `json:"last_payment_date"`
	ProjectedPayoff *string         `json:"projected_payoff"`
}
