package domain

import "math"

// ShareMode elige cómo se representa la propiedad del pool.
type ShareMode string

const (
	// ShareToken: claim-tokens en el ledger externo (diseño de referencia).
	ShareToken ShareMode = "token"
	// ShareWeight: tabla interna de pesos por inversor.
	ShareWeight ShareMode = "weight"
)

// BootstrapWeight es el peso que recibe el primer depositante en modo weight.
const BootstrapWeight int64 = 1_000_000

// Pool es el estado singleton del bankroll.
type Pool struct {
	Capital       int64  // unidad mínima del activo de liquidación
	TotalWeight   int64  // denominador en modo weight; 0 en modo token
	CurrentRollID uint64 // contador monótono de rolls
	Paused        bool
}

// NextRollID reserva el siguiente id de roll.
func (p *Pool) NextRollID() uint64 {
	id := p.CurrentRollID
	p.CurrentRollID++
	return id
}

// Credit suma (o resta, si delta < 0) capital. Falla si el capital quedaría negativo.
func (p *Pool) Credit(delta int64) error {
	if p.Capital+delta < 0 {
		return Capacityf("bankroll would go negative: capital %d, change %d", p.Capital, delta)
	}
	p.Capital += delta
	return nil
}

// ShareRule convierte entre capital y participaciones (peso o claim-tokens).
type ShareRule struct {
	Mode ShareMode
	// DecimalShift = precisión del claim-token − precisión del activo; solo
	// se usa para el bootstrap en modo token.
	DecimalShift int32
}

// Issue devuelve cuántas participaciones corresponden a depositar amount en un
// pool con capital y supply dados. Redondea hacia abajo (a favor del pool).
func (r ShareRule) Issue(amount, capital, supply int64) (int64, error) {
	if capital == 0 || supply == 0 {
		if r.Mode == ShareWeight {
			return BootstrapWeight, nil
		}
		return shiftDecimals(amount, r.DecimalShift)
	}
	shares := float64(amount) / float64(capital) * float64(supply)
	if shares >= math.MaxInt64 {
		return 0, Validationf("deposit of %d would issue more shares than fit in a balance", amount)
	}
	return int64(shares), nil
}

// Redeem devuelve el capital que corresponde a quemar shares participaciones.
// Redondea hacia abajo.
func (r ShareRule) Redeem(shares, capital, supply int64) int64 {
	if supply <= 0 || shares <= 0 {
		return 0
	}
	if shares >= supply {
		return capital
	}
	return int64(float64(capital) * float64(shares) / float64(supply))
}

func shiftDecimals(amount int64, shift int32) (int64, error) {
	switch {
	case shift > 0:
		factor := int64(math.Pow10(int(shift)))
		if amount > math.MaxInt64/factor {
			return 0, Validationf("deposit of %d overflows the claim token at 10^%d", amount, shift)
		}
		return amount * factor, nil
	case shift < 0:
		return amount / int64(math.Pow10(int(-shift))), nil
	default:
		return amount, nil
	}
}
