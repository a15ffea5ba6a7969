package distribution

import "github.com/shopspring/decimal"

// Split divides amount into n installments rounded to cents. The rounding
// remainder lands on the last installment so the parts always sum to amount.
func Split(amount decimal.Decimal, n int) []decimal.Decimal {
	if n < 1 {
		n = 1
	}
	parts := make([]decimal.Decimal, n)
	each, last := installments(amount, n)
	for i := 0; i < n-1; i++ {
		parts[i] = each
	}
	parts[n-1] = last
	return parts
}

// installments returns the cent-rounded size of each of n installments and
// of the last one, which carries the rounding remainder.
func installments(amount decimal.Decimal, n int) (each, last decimal.Decimal) {
	if n < 1 {
		n = 1
	}
	each = amount.DivRound(decimal.NewFromInt(int64(n)), 2)
	last = amount.Sub(each.Mul(decimal.NewFromInt(int64(n - 1))))
	return each, last
}

// SplitWeighted divides amount in proportion to weights (which sum to total),
// rounding to cents with the remainder on the last part.
func SplitWeighted(amount decimal.Decimal, weights []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 || total.IsZero() {
		return parts
	}
	allocated := decimal.Zero
	for i := 0; i < len(weights)-1; i++ {
		parts[i] = amount.Mul(weights[i]).Div(total).Round(2)
		allocated = allocated.Add(parts[i])
	}
	parts[len(parts)-1] = amount.Sub(allocated)
	return parts
}
