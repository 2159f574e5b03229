// Package money implements the platform fee split. Amounts are integers in
// centavos so splits are exact; the rounding remainder always goes to the
// seller.
package money

import (
	"errors"
	"math"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidFeePercent = errors.New("fee percentage must be between 0 and 100")
)

// Split divides a total amount between the platform and the seller.
// feePercent is a percentage in [0, 100]. The platform fee is rounded down
// so that platformFee + sellerAmount == total holds exactly.
func Split(total int64, feePercent float64) (platformFee, sellerAmount int64, err error) {
	if total <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	if math.IsNaN(feePercent) || feePercent < 0 || feePercent > 100 {
		return 0, 0, ErrInvalidFeePercent
	}

	// Convert the percentage to basis points once, then stay in integers.
	feeBps := int64(math.Round(feePercent * 100))
	platformFee = total * feeBps / 10000
	sellerAmount = total - platformFee
	return platformFee, sellerAmount, nil
}
