package usecase

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"loantrack-core/internal/domain/entity"
)

// defaultGapDays stands in for the payment cadence when only one payment
// exists and no gap can be measured. One month is the sensible unit for a
// term-months loan.
const defaultGapDays = 30

// ProjectPayoff estimates when a loan reaches zero from historical payment
// cadence: mean payment amount, mean day gap between consecutive payments,
// remaining balance advanced from the last payment date. Display only.
// Returns nil when the balance is already zero or no payments exist.
func ProjectPayoff(balance decimal.Decimal, payments []entity.Payment) *string {
	if !balance.IsPositive() || len(payments) == 0 {
		return nil
	}

	sorted := make([]entity.Payment, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PaymentDate < sorted[j].PaymentDate })

	dates := make([]time.Time, 0, len(sorted))
	total := decimal.Zero
	for _, p := range sorted {
		d, err := time.Parse("2006-01-02", p.PaymentDate)
		if err != nil {
			return nil
		}
		dates = append(dates, d)
		total = total.Add(p.Amount)
	}

	mean := total.Div(decimal.NewFromInt(int64(len(sorted))))
	if !mean.IsPositive() {
		return nil
	}

	gapDays := defaultGapDays
	if len(dates) >= 2 {
		totalGap := 0.0
		for i := 1; i < len(dates); i++ {
			totalGap += dates[i].Sub(dates[i-1]).Hours() / 24
		}
		gapDays = int(totalGap / float64(len(dates)-1))
		if gapDays < 1 {
			gapDays = 1
		}
	}

	intervals := balance.Div(mean).Ceil().IntPart()
	payoff := dates[len(dates)-1].AddDate(0, 0, int(intervals)*gapDays).Format("2006-01-02")
	return &payoff
}
