package domain

import "math"

// Constantes de la heurística de riesgo. No son una cota formal: el gating de
// capital depende de ellas, así que se reproducen tal cual.
const (
	riskBetFactorNumerator = 5.0
	riskBetFactorOffset    = 0.2
	riskExponent           = 3.0
	riskScale              = 100.0
)

// RequiredCapital calcula el capital mínimo que debe tener el pool para aceptar
// un roll cuya partición de payouts es ranges.
//
// Solo cuentan los tramos donde el pool pierde (payout > collected):
//
//	odds            = ancho / n
//	maxBetFactor    = 5 / sqrt(1/odds − 1) − 0.2
//	effectivePayout = (payout − collected) + payout × odds
//	variance       += (effectivePayout × odds / maxBetFactor)³
//
// Resultado: cbrt(variance) × 100, truncado a la unidad mínima del activo.
// La probabilidad de perder la mitad del bankroll en ~100 rolls crece más o
// menos con el cubo del tamaño relativo de la apuesta; la raíz cúbica lo
// devuelve a escala de capital.
func RequiredCapital(ranges []Range, collected int64, n uint32) int64 {
	variance := 0.0
	for _, r := range ranges {
		if r.Payout <= collected {
			continue
		}
		odds := float64(r.Upper-r.Lower+1) / float64(n)
		maxBetFactor := riskBetFactorNumerator/math.Sqrt(1/odds-1) - riskBetFactorOffset
		effectivePayout := float64(r.Payout-collected) + float64(r.Payout)*odds
		variance += math.Pow(effectivePayout*odds/maxBetFactor, riskExponent)
	}
	required := math.Cbrt(variance) * riskScale
	if required <= 0 || math.IsNaN(required) {
		return 0
	}
	if required >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(required)
}

// WorstCaseLoss es la pérdida neta máxima del pool en un roll: el mayor payout
// de cualquier tramo menos todo lo apostado. Nunca negativa.
func WorstCaseLoss(l *PayoutLedger, totalStake int64) int64 {
	return max(0, l.MaxPayout()-totalStake)
}
