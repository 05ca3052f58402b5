package domain

import (
	"slices"
	"sort"
)

// Range es un tramo [Lower, Upper] del espacio de resultados con el total que
// el pool debería pagar si el resultado cae dentro.
type Range struct {
	Lower  uint32
	Upper  uint32
	Payout int64
}

// Width es el número de resultados del tramo.
func (r Range) Width() uint32 {
	return r.Upper - r.Lower + 1
}

// PayoutLedger mantiene una partición ordenada y sin huecos de [1, N]; cada
// tramo lleva la suma de payouts de las bets que lo cubren.
//
// Es un slice ordenado en vez de una lista enlazada: vive lo que dura el
// cálculo de un roll y se reconstruye cada vez. Cada Insert parte como mucho
// dos tramos y toca los k tramos que solapan con la bet; con el coste de mover
// el slice, el peor caso es O(tramos) por bet y O(bets²) por roll. Por eso el
// número de bets por roll está acotado (exchange.Config.MaxBetsPerRoll).
type PayoutLedger struct {
	maxResult uint32
	ranges    []Range
}

// NewPayoutLedger crea la partición inicial: un único tramo [1, n] con payout 0.
func NewPayoutLedger(n uint32) *PayoutLedger {
	return &PayoutLedger{
		maxResult: n,
		ranges:    []Range{{Lower: 1, Upper: n, Payout: 0}},
	}
}

// BuildPayoutLedger funde todas las bets en una partición nueva.
func BuildPayoutLedger(n uint32, bets []Bet) *PayoutLedger {
	l := NewPayoutLedger(n)
	for _, b := range bets {
		l.Insert(b.Lower, b.Upper, b.Payout())
	}
	return l
}

// Insert suma payout a todos los resultados de [lo, hi].
// Precondición: 1 ≤ lo ≤ hi ≤ N (lo valida BetPolicy antes de llegar aquí).
func (l *PayoutLedger) Insert(lo, hi uint32, payout int64) {
	// Primer tramo que solapa: el primero con Upper ≥ lo.
	i := sort.Search(len(l.ranges), func(k int) bool { return l.ranges[k].Upper >= lo })

	// La bet empieza dentro del tramo: se separa el resto izquierdo intacto.
	if first := l.ranges[i]; first.Lower < lo {
		l.ranges[i].Upper = lo - 1
		l.ranges = slices.Insert(l.ranges, i+1, Range{Lower: lo, Upper: first.Upper, Payout: first.Payout})
		i++
	}

	// Último tramo que solapa: el último con Lower ≤ hi.
	j := sort.Search(len(l.ranges), func(k int) bool { return l.ranges[k].Lower > hi }) - 1

	// La bet acaba dentro del tramo: se separa el resto derecho intacto.
	if last := l.ranges[j]; last.Upper > hi {
		l.ranges[j].Upper = hi
		l.ranges = slices.Insert(l.ranges, j+1, Range{Lower: hi + 1, Upper: last.Upper, Payout: last.Payout})
	}

	for k := i; k <= j; k++ {
		l.ranges[k].Payout += payout
	}
}

// Ranges devuelve una copia de la partición, ordenada.
func (l *PayoutLedger) Ranges() []Range {
	return slices.Clone(l.ranges)
}

// Len es el número de tramos.
func (l *PayoutLedger) Len() int {
	return len(l.ranges)
}

// MaxResult es N.
func (l *PayoutLedger) MaxResult() uint32 {
	return l.maxResult
}

// PayoutAt devuelve el total a pagar si sale el resultado o.
func (l *PayoutLedger) PayoutAt(o uint32) int64 {
	i := sort.Search(len(l.ranges), func(k int) bool { return l.ranges[k].Upper >= o })
	if i == len(l.ranges) || l.ranges[i].Lower > o {
		return 0
	}
	return l.ranges[i].Payout
}

// MaxPayout es el mayor payout de cualquier tramo.
func (l *PayoutLedger) MaxPayout() int64 {
	var best int64
	for _, r := range l.ranges {
		best = max(best, r.Payout)
	}
	return best
}
