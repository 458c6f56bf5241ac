package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loantrack-core/internal/domain/entity"
)

// Defaults carries the only values the validator is allowed to synthesize.
type Defaults struct {
	// Today is the current date (YYYY-MM-DD, reference timezone), used when
	// add_payment omits payment_date.
	Today string
	// Payer is the canonical party recorded when add_payment omits paid_by.
	Payer string
	// Parties is the closed set of canonical payer names.
	Parties []string
}

// ValidateAction is the authoritative "is this executable" gate. It runs at
// the point of execution regardless of what the model's own need_followup
// flag claimed, and again for direct action-endpoint calls that never went
// through the parser. It returns a typed parameter record; the raw map does
// not travel past this boundary.
func ValidateAction(action entity.Action, params map[string]any, d Defaults) (*entity.ValidatedAction, error) {
	switch action {
	case entity.ActionCreateLoan:
		return validateCreateLoan(params)
	case entity.ActionAddPayment:
		return validateAddPayment(params, d)
	case entity.ActionGetLoans:
		return &entity.ValidatedAction{
			Action:   action,
			GetLoans: &entity.GetLoansParams{LoanName: stringParam(params, "loan_name", "name")},
		}, nil
	case entity.ActionDeleteLoan:
		return validateDeleteLoan(params)
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownAction, action)
	}
}

func validateCreateLoan(params map[string]any) (*entity.ValidatedAction, error) {
	var missing []string

	name := stringParam(params, "loan_name", "name")
	if name == "" {
		missing = append(missing, "loan_name")
	}
	amount, ok := numberParam(params, "amount", "original_amount")
	if !ok || amount.IsZero() {
		missing = append(missing, "amount")
	}
	date := stringParam(params, "loan_date", "date")
	if date == "" {
		missing = append(missing, "loan_date")
	} else if !validDate(date) {
		return nil, fmt.Errorf("%w: loan_date must be YYYY-MM-DD, got %q", entity.ErrMissingFields, date)
	}
	term, ok := intParam(params, "term_months", "term")
	if !ok || term == 0 {
		missing = append(missing, "term_months")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(entity.ActionCreateLoan, missing)
	}

	loanType := stringParam(params, "loan_type")
	if loanType == "" {
		loanType = "general"
	}

	return &entity.ValidatedAction{
		Action: entity.ActionCreateLoan,
		CreateLoan: &entity.CreateLoanParams{
			Name:       name,
			Amount:     amount,
			LoanDate:   date,
			TermMonths: term,
			LoanType:   loanType,
			Lender:     stringParam(params, "lender"),
		},
	}, nil
}

func validateAddPayment(params map[string]any, d Defaults) (*entity.ValidatedAction, error) {
	var missing []string

	loanID := stringParam(params, "loan_id")
	loanName := stringParam(params, "loan_name", "name")
	if loanID == "" && loanName == "" {
		missing = append(missing, "loan_name")
	}
	amount, ok := numberParam(params, "amount")
	if !ok || !amount.IsPositive() {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return nil, missingFieldsError(entity.ActionAddPayment, missing)
	}

	paidBy := canonicalParty(stringParam(params, "paid_by"), d.Parties)
	if paidBy == "" {
		paidBy = d.Payer
	}
	date := stringParam(params, "payment_date", "date")
	if date == "" {
		date = d.Today
	} else if !validDate(date) {
		return nil, fmt.Errorf("%w: payment_date must be YYYY-MM-DD, got %q", entity.ErrMissingFields, date)
	}

	return &entity.ValidatedAction{
		Action: entity.ActionAddPayment,
		AddPayment: &entity.AddPaymentParams{
			LoanID:      loanID,
			LoanName:    loanName,
			Amount:      amount,
			PaidBy:      paidBy,
			PaymentDate: date,
		},
	}, nil
}

func validateDeleteLoan(params map[string]any) (*entity.ValidatedAction, error) {
	loanID := stringParam(params, "loan_id")
	loanName := stringParam(params, "loan_name", "name")
	if loanID == "" && loanName == "" {
		return nil, fmt.Errorf("%w for delete_loan: loan_name or loan_id", entity.ErrMissingFields)
	}
	return &entity.ValidatedAction{
		Action:     entity.ActionDeleteLoan,
		DeleteLoan: &entity.DeleteLoanParams{LoanID: loanID, LoanName: loanName},
	}, nil
}

func missingFieldsError(action entity.Action, missing []string) error {
	return fmt.Errorf("%w for %s: %s", entity.ErrMissingFields, action, strings.Join(missing, ", "))
}

// canonicalParty maps a case-insensitive payer to its canonical casing.
// Unrecognized names are dropped so the closed set holds.
func canonicalParty(name string, parties []string) string {
	for _, p := range parties {
		if strings.EqualFold(p, name) {
			return p
		}
	}
	return ""
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// stringParam returns the first non-empty string value among the aliased
// keys. The parser and the direct action endpoint use different key names
// for some fields, so aliases are resolved here once.
func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// numberParam accepts JSON numbers and numeric strings; the model sometimes
// quotes amounts.
func numberParam(params map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		switch v := params[k].(type) {
		case float64:
			return decimal.NewFromFloat(v), true
		case int:
			return decimal.NewFromInt(int64(v)), true
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func intParam(params map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := params[k].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
