package usecase

import (
	"strings"

	"loantrack-core/internal/domain/entity"
)

// ResolveLoan locates a loan by approximate name using three tiers in strict
// priority order: exact case-insensitive equality, then case-insensitive
// prefix, then case-insensitive substring. The first non-empty tier wins;
// within a tier, the first match in slice order. Returns nil when every tier
// is empty.
func ResolveLoan(loans []entity.Loan, name string) *entity.Loan {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return nil
	}

	for _, loan := range loans {
		if strings.ToLower(loan.Name) == q {
			return &loan
		}
	}
	for _, loan := range loans {
		if strings.HasPrefix(strings.ToLower(loan.Name), q) {
			return &loan
		}
	}
	for _, loan := range loans {
		if strings.Contains(strings.ToLower(loan.Name), q) {
			return &loan
		}
	}
	return nil
}
