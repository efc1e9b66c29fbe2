package sales

import "math"

// moneyTolerance is the rounding slack applied to currency comparisons.
const moneyTolerance = 0.01

func CalculateLineTotals(quantity, unitPrice, discountPercent, taxPercent float64) (discountAmount, taxAmount, lineTotal float64) {
	grossAmount := quantity * unitPrice
	discountAmount = grossAmount * (discountPercent / 100)
	netAmount := grossAmount - discountAmount
	taxAmount = netAmount * (taxPercent / 100)
	lineTotal = netAmount + taxAmount
	return
}

// AmountsEqual compares two currency amounts within rounding tolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= moneyTolerance
}
