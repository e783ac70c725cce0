package enrich

// divergenceType classifies the relationship between a price move and its
// volume support, grounded on original_source/volume_price_divergence.py's
// detect_divergence.
type divergenceType string

const (
	divergenceNone                   divergenceType = ""
	divergenceWeakRally              divergenceType = "WEAK_RALLY"
	divergenceStrongSelloffReversal  divergenceType = "STRONG_SELLOFF_REVERSAL"
	divergenceConfirmedRally         divergenceType = "CONFIRMED_RALLY"
	divergenceConfirmedSelloff       divergenceType = "CONFIRMED_SELLOFF"
)

const (
	minPriceMovePct  = 0.02
	minVolumeMovePct = 0.30
)

// classifyDivergence returns the divergence type and its additive
// total_score adjustment (in [-0.15, +0.15]). priceChangePct and
// volumeChangePct are fractions (0.05 = +5%); volumeChangePct is typically
// rvol-1.0 per §4.8.
func classifyDivergence(priceChangePct, volumeChangePct float64) (divergenceType, float64) {
	priceSignificant := absf(priceChangePct) >= minPriceMovePct
	volumeSignificant := absf(volumeChangePct) >= minVolumeMovePct
	if !priceSignificant || !volumeSignificant {
		return divergenceNone, 0
	}

	priceMag := absf(priceChangePct)
	volMag := absf(volumeChangePct)

	switch {
	case priceChangePct > minPriceMovePct && volumeChangePct < -minVolumeMovePct:
		// Weak rally: price up, volume down. Bearish.
		switch {
		case priceMag > 0.05 && volMag > 0.50:
			return divergenceWeakRally, -0.15
		case priceMag > 0.03 && volMag > 0.40:
			return divergenceWeakRally, -0.12
		default:
			return divergenceWeakRally, -0.10
		}

	case priceChangePct < -minPriceMovePct && volumeChangePct < -minVolumeMovePct:
		// Strong selloff reversal: both down. Bullish (exhaustion).
		switch {
		case priceMag > 0.05 && volMag > 0.50:
			return divergenceStrongSelloffReversal, 0.12
		case priceMag > 0.03 && volMag > 0.40:
			return divergenceStrongSelloffReversal, 0.10
		default:
			return divergenceStrongSelloffReversal, 0.08
		}

	case priceChangePct > minPriceMovePct && volumeChangePct > minVolumeMovePct:
		// Confirmed rally: both up. Bullish.
		switch {
		case priceMag > 0.05 && volMag > 1.0:
			return divergenceConfirmedRally, 0.15
		case priceMag > 0.03 && volMag > 0.50:
			return divergenceConfirmedRally, 0.12
		default:
			return divergenceConfirmedRally, 0.10
		}

	case priceChangePct < -minPriceMovePct && volumeChangePct > minVolumeMovePct:
		// Confirmed selloff: price down, volume up. Bearish.
		switch {
		case priceMag > 0.05 && volMag > 1.0:
			return divergenceConfirmedSelloff, -0.15
		case priceMag > 0.03 && volMag > 0.50:
			return divergenceConfirmedSelloff, -0.12
		default:
			return divergenceConfirmedSelloff, -0.10
		}
	}
	return divergenceNone, 0
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
