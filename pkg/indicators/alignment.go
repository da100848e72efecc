package indicators

// MAAligned reports whether all four moving averages are present and
// strictly decreasing in the order ma5 > ma20 > ma60 > ma112.
func MAAligned(ma5, ma20, ma60, ma112 float64, ok5, ok20, ok60, ok112 bool) bool {
	if !ok5 || !ok20 || !ok60 || !ok112 {
		return false
	}
	return ma5 > ma20 && ma20 > ma60 && ma60 > ma112
}

// PercentOfMA expresses price as a percentage of a moving average,
// 100 * price / ma, the form every ratio predicate compares against
// integer bounds.
func PercentOfMA(price, ma float64) float64 {
	if ma == 0 {
		return 0
	}
	return 100 * price / ma
}
