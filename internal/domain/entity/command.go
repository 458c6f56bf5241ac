package entity

import "github.com/shopspring/decimal"

// Action is one of the recognized command categories.
type Action string

const (
	ActionCreateLoan Action = "create_loan"
	ActionAddPayment Action = "add_payment"
	ActionGetLoans   Action = "get_loans"
	ActionDeleteLoan Action = "delete_loan"
	ActionUnknown    Action = "unknown"
)

// KnownActions lists the four executable actions, in menu order.
var KnownActions = []Action{ActionCreateLoan, ActionAddPayment, ActionGetLoans, ActionDeleteLoan}

// IsExecutable reports whether a is a concrete action the executor handles.
func (a Action) IsExecutable() bool {
	switch a {
	case ActionCreateLoan, ActionAddPayment, ActionGetLoans, ActionDeleteLoan:
		return true
	}
	return false
}

// ParsedCommand is the model's structured output after server-side
// normalization. Parameters are raw until the validator turns them into a
// typed record; nothing downstream of the validator reads the map.
type ParsedCommand struct {
	Action           Action         `json:"action"`
	Parameters       map[string]any `json:"parameters"`
	Message          string         `json:"message"`
	NeedFollowup     bool           `json:"need_followup"`
	FollowupQuestion *string        `json:"followup_question"`
}

// CreateLoanParams carries the four mandatory create_loan fields plus the
// two optional ones. LoanType is the only field a default is synthesized for.
type CreateLoanParams struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	LoanDate   string          `json:"loan_date"`
	TermMonths int             `json:"term_months"`
	LoanType   string          `json:"loan_type"`
	Lender     string          `json:"lender,omitempty"`
}

type AddPaymentParams struct {
	LoanID      string          `json:"loan_id,omitempty"`
	LoanName    string          `json:"loan_name,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paid_by"`
	PaymentDate string          `json:"payment_date"`
}

type GetLoansParams struct {
	LoanName string `json:"loan_name,omitempty"`
}

type DeleteLoanParams struct {
	LoanID   string `json:"loan_id,omitempty"`
	LoanName string `json:"loan_name,omitempty"`
}

// ValidatedAction is the tagged union produced by the validator. Exactly one
// of the parameter records is non-nil, matching Action.
type ValidatedAction struct {
	Action     Action
	CreateLoan *CreateLoanParams
	AddPayment *AddPaymentParams
	GetLoans   *GetLoansParams
	DeleteLoan *DeleteLoanParams
}

// ActionResult is the user-facing outcome of one executed action.
type ActionResult struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
