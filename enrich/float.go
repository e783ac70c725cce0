package enrich

// floatClassMultiplier buckets float shares outstanding into a volatility
// expectation multiplier, separate from §4.7's additive float score: smaller
// floats move further on the same dollar volume, so they get a higher
// multiplier on total_score.
func floatClassMultiplier(floatShares float64) (mult float64, class string) {
	switch {
	case floatShares < 10_000_000:
		return 1.3, "MICRO"
	case floatShares < 50_000_000:
		return 1.15, "LOW"
	case floatShares < 100_000_000:
		return 1.0, "NORMAL"
	default:
		return 0.9, "HIGH"
	}
}
