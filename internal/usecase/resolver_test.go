package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loantrack-core/internal/domain/entity"
)

func namedLoans(names ...string) []entity.Loan {
	loans := make([]entity.Loan, len(names))
	for i, n := range names {
		loans[i] = entity.Loan{ID: n + "-id", Name: n}
	}
	return loans
}

func TestResolveLoan_TierPriority(t *testing.T) {
	// "dining" is a prefix of "Dining Chairs" and a substring of
	// "Fine Dining Table"; the prefix tier must win.
	loans := namedLoans("Fine Dining Table", "Dining Chairs")
	got := ResolveLoan(loans, "dining")
	require.NotNil(t, got)
	assert.Equal(t, "Dining Chairs", got.Name)
}

func TestResolveLoan_ExactBeatsPrefixAndSubstring(t *testing.T) {
	loans := namedLoans("Couch Cushions", "couch")
	got := ResolveLoan(loans, "Couch")
	require.NotNil(t, got)
	assert.Equal(t, "couch", got.Name, "exact case-insensitive equality wins")
}

func TestResolveLoan_PrefixMatch(t *testing.T) {
	loans := namedLoans("Tesla Model 3", "Dining Chairs")
	got := ResolveLoan(loans, "tesla")
	require.NotNil(t, got)
	assert.Equal(t, "Tesla Model 3", got.Name)
}

func TestResolveLoan_SubstringFallback(t *testing.T) {
	loans := namedLoans("Tesla Model 3")
	got := ResolveLoan(loans, "model")
	require.NotNil(t, got)
	assert.Equal(t, "Tesla Model 3", got.Name)
}

func TestResolveLoan_FirstMatchWithinTier(t *testing.T) {
	loans := namedLoans("Desk Lamp", "Desk Chair")
	got := ResolveLoan(loans, "desk")
	require.NotNil(t, got)
	assert.Equal(t, "Desk Lamp", got.Name)
}

func TestResolveLoan_NoMatch(t *testing.T) {
	loans := namedLoans("Couch", "Dining Chairs")
	assert.Nil(t, ResolveLoan(loans, "motorcycle"))
	assert.Nil(t, ResolveLoan(loans, ""))
	assert.Nil(t, ResolveLoan(nil, "couch"))
}
