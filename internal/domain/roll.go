package domain

import (
	"math"
	"strconv"
	"time"
)

// RollState representa el ciclo de vida de un roll.
type RollState string

const (
	RollOpen               RollState = "OPEN"
	RollLocked             RollState = "LOCKED"
	RollAwaitingRandomness RollState = "AWAITING_RANDOMNESS"
	RollSettled            RollState = "SETTLED"
)

// allowedTransitions: Open → Locked → AwaitingRandomness → Settled.
var allowedTransitions = map[RollState]RollState{
	RollOpen:               RollLocked,
	RollLocked:             RollAwaitingRandomness,
	RollAwaitingRandomness: RollSettled,
}

// MultiplierScale: los multiplicadores van escalados por 1000 (2000 = 2×).
const MultiplierScale = 1000

// Roll es un sorteo uniforme en [1, MaxResult] contra el que se registran bets.
type Roll struct {
	ID            uint64
	Creator       Account
	CreatorID     uint64 // id elegido por el creador, único por creador
	MaxResult     uint32 // N
	RakeRecipient Account
	State         RollState
	TotalStake    int64
	BetCount      int

	// Rellenados al bloquear (lock).
	Collected       int64 // TotalStake − Rake − Fee
	Rake            int64
	Fee             int64
	MaxLoss         int64 // pérdida neta máxima del pool si sale el peor resultado
	RequiredCapital int64
	SigningValue    uint64

	CreatedAt time.Time
	LockedAt  *time.Time
}

// Locked indica si el roll ya fue financiado (el "paid" del contrato original).
func (r Roll) Locked() bool {
	return r.State == RollLocked || r.State == RollAwaitingRandomness
}

// Transition avanza el estado; solo se admite el siguiente estado de la cadena.
func (r *Roll) Transition(to RollState) error {
	next, ok := allowedTransitions[r.State]
	if !ok || next != to {
		return Statef("roll %d: cannot move from %s to %s", r.ID, r.State, to)
	}
	r.State = to
	return nil
}

// CreatorKey es la clave secundaria creator<<64|creator_id del contrato original,
// aquí como string para indexar en storage.
func (r Roll) CreatorKey() string {
	return CreatorKey(r.Creator, r.CreatorID)
}

// CreatorKey construye la clave secundaria de un roll.
func CreatorKey(creator Account, creatorID uint64) string {
	return string(creator) + "/" + strconv.FormatUint(creatorID, 10)
}

// Bet es una apuesta a que el resultado cae en [Lower, Upper].
// ID refleja el orden de registro dentro del roll.
type Bet struct {
	ID         uint64
	RollID     uint64
	Bettor     Account
	Stake      int64  // unidad mínima del activo de liquidación
	Lower      uint32 // inclusive
	Upper      uint32 // inclusive
	Multiplier uint32 // escalado por 1000
	Seed       uint64 // semilla del cliente
}

// Width es el número de resultados cubiertos.
func (b Bet) Width() uint32 {
	return b.Upper - b.Lower + 1
}

// Contains indica si el resultado r gana esta apuesta.
func (b Bet) Contains(r uint32) bool {
	return b.Lower <= r && r <= b.Upper
}

// Odds es la probabilidad de ganar bajo un sorteo uniforme en [1, n].
func (b Bet) Odds(n uint32) float64 {
	return float64(b.Width()) / float64(n)
}

// EV = odds × multiplier/1000: fracción del stake que se espera devolver.
func (b Bet) EV(n uint32) float64 {
	return b.Odds(n) * float64(b.Multiplier) / float64(MultiplierScale)
}

// Edge = 1 − EV: ventaja de la casa en esta apuesta.
func (b Bet) Edge(n uint32) float64 {
	return 1 - b.EV(n)
}

// Payout es lo que cobra el bettor si gana, redondeado hacia abajo.
func (b Bet) Payout() int64 {
	return b.Stake * int64(b.Multiplier) / MultiplierScale
}

// BetPolicy agrupa los límites de aceptación y el reparto del edge.
type BetPolicy struct {
	MinOdds   float64 // odds mínimas (rechaza rangos absurdamente estrechos)
	MaxEV     float64 // EV máximo: suelo de edge de la casa
	PoolEdge  float64 // parte del edge que se queda el pool
	RakeShare float64 // fracción del resto que va al rake recipient; lo demás es fee
}

// DefaultBetPolicy devuelve los límites del contrato original.
func DefaultBetPolicy() BetPolicy {
	return BetPolicy{
		MinOdds:   0.005,
		MaxEV:     0.99,
		PoolEdge:  0.007,
		RakeShare: 0.5,
	}
}

// Validate comprueba una apuesta contra un roll de n resultados.
func (p BetPolicy) Validate(b Bet, n uint32) error {
	if b.Stake <= 0 {
		return Validationf("stake must be positive")
	}
	if b.Lower < 1 {
		return Validationf("lower_bound needs to be at least 1")
	}
	if b.Lower > b.Upper {
		return Validationf("lower_bound can't be greater than upper_bound")
	}
	if b.Upper > n {
		return Validationf("upper_bound can't be greater than the max_result (%d) of the roll", n)
	}
	if b.Multiplier <= MultiplierScale {
		return Validationf("multiplier must be greater than %d", MultiplierScale)
	}
	if b.Stake > math.MaxInt64/int64(b.Multiplier) {
		return Validationf("stake too large for multiplier %d", b.Multiplier)
	}
	if b.Odds(n) < p.MinOdds {
		return Validationf("odds %.6f below minimum %.3f", b.Odds(n), p.MinOdds)
	}
	if ev := b.EV(n); ev > p.MaxEV {
		return Validationf("the bet can't have an EV greater than %.2f (got %.4f)", p.MaxEV, ev)
	}
	return nil
}

// Fees calcula rake y fee de una apuesta: del edge, el pool se queda PoolEdge
// y el resto se reparte entre rake recipient y protocolo. Redondeo hacia abajo.
func (p BetPolicy) Fees(b Bet, n uint32) (rake, fee int64) {
	share := b.Edge(n) - p.PoolEdge
	if share <= 0 {
		return 0, 0
	}
	dev := int64(share * float64(b.Stake))
	rake = int64(float64(dev) * p.RakeShare)
	return rake, dev - rake
}
