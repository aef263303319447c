package rentals

import (
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
)

const secondsPerDay = 24 * 60 * 60

// MaxTotalPrice is the largest total the rentals.total_price numeric(12,2)
// column holds.
var MaxTotalPrice = decimal.RequireFromString("9999999999.99")

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RentalDays counts whole calendar days between start and end, with a floor
// of one so same-day rentals are billed. Counting goes through Unix seconds
// because time.Duration saturates at roughly 292 years.
func RentalDays(start, end time.Time) int {
	days := (DateOf(end).Unix() - DateOf(start).Unix()) / secondsPerDay
	if days < 1 {
		return 1
	}
	return int(days)
}

// TotalPrice multiplies the daily price by the rental days, rounded to cents.
func TotalPrice(daily decimal.Decimal, days int) decimal.Decimal {
	if daily.IsNegative() || days <= 0 {
		return decimal.Zero
	}
	return daily.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// checkTotal rejects totals the rentals table cannot store.
func checkTotal(total decimal.Decimal) error {
	if total.GreaterThan(MaxTotalPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "total price exceeds the maximum of "+MaxTotalPrice.StringFixed(2)).
			WithDetails(map[string]any{"total_price": total.StringFixed(2), "max_total_price": MaxTotalPrice.StringFixed(2)})
	}
	return nil
}
