package domain

import "github.com/shopspring/decimal"

// LineTotal returns price * qty rounded to two decimal places.
func LineTotal(price float64, qty int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(2).
		InexactFloat64()
}

// NormalizePrice returns the stored price for an event: free events are
// always priced at zero and paid events need a positive price.
func NormalizePrice(isPaid bool, price float64) (float64, error) {
	if !isPaid {
		return 0, nil
	}
	if price <= 0 {
		return 0, Errorf(ErrInvalidArgument, "Paid events require a positive price")
	}
	return decimal.NewFromFloat(price).Round(2).InexactFloat64(), nil
}

// FormatAmount renders v with symbol and exactly two decimals.
func FormatAmount(symbol string, v float64) string {
	return symbol + decimal.NewFromFloat(v).StringFixed(2)
}
