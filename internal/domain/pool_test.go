package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, r ShareRule, amount, capital, supply int64) int64 {
	t.Helper()
	shares, err := r.Issue(amount, capital, supply)
	require.NoError(t, err)
	return shares
}

func TestShareRule_BootstrapWeight(t *testing.T) {
	r := ShareRule{Mode: ShareWeight}
	assert.Equal(t, BootstrapWeight, issue(t, r, 5_000, 0, 0))
}

func TestShareRule_BootstrapToken(t *testing.T) {
	assert.Equal(t, int64(500_000), issue(t, ShareRule{Mode: ShareToken, DecimalShift: 2}, 5_000, 0, 0))
	assert.Equal(t, int64(50), issue(t, ShareRule{Mode: ShareToken, DecimalShift: -2}, 5_099, 0, 0))
	assert.Equal(t, int64(5_000), issue(t, ShareRule{Mode: ShareToken}, 5_000, 0, 0))
}

func TestShareRule_BootstrapTokenOverflow(t *testing.T) {
	r := ShareRule{Mode: ShareToken, DecimalShift: 2}
	_, err := r.Issue(200_000_000_000_000_000, 0, 0)
	assert.ErrorIs(t, err, ErrValidation)

	// Justo en el límite: MaxInt64/100 × 100 cabe.
	assert.Equal(t, int64(9_223_372_036_854_775_800), issue(t, r, 92_233_720_368_547_758, 0, 0))
}

func TestShareRule_ProportionalOverflow(t *testing.T) {
	r := ShareRule{Mode: ShareToken}
	_, err := r.Issue(1_000_000_000_000_000_000, 1, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestShareRule_ProportionalIssueFloors(t *testing.T) {
	r := ShareRule{Mode: ShareWeight}
	// 100 / 300 × 1_000_000 = 333_333.33
	assert.Equal(t, int64(333_333), issue(t, r, 100, 300, 1_000_000))
}

func TestShareRule_OrphanCapitalBootstraps(t *testing.T) {
	// Capital sin participaciones (p.ej. stakes ganados con pool vacío).
	r := ShareRule{Mode: ShareWeight}
	assert.Equal(t, BootstrapWeight, issue(t, r, 100, 40, 0))
}

func TestShareRule_Redeem(t *testing.T) {
	r := ShareRule{Mode: ShareWeight}
	assert.Equal(t, int64(0), r.Redeem(10, 100, 0))
	assert.Equal(t, int64(100), r.Redeem(1_000, 100, 1_000))
	assert.Equal(t, int64(33), r.Redeem(1, 100, 3))
}

func TestShareRule_RoundTrip(t *testing.T) {
	for _, mode := range []ShareRule{{Mode: ShareWeight}, {Mode: ShareToken, DecimalShift: 2}} {
		capital, supply := int64(0), int64(0)

		// Primer inversor
		first := issue(t, mode, 1_000_000, capital, supply)
		capital, supply = capital+1_000_000, supply+first

		// Depositar X y retirar inmediatamente lo emitido devuelve X (±1).
		for _, x := range []int64{1, 7, 12_345, 999_999, 3_000_000} {
			shares := issue(t, mode, x, capital, supply)
			c2, s2 := capital+x, supply+shares
			back := mode.Redeem(shares, c2, s2)
			assert.LessOrEqual(t, back, x, "mode %s deposit %d", mode.Mode, x)
			assert.GreaterOrEqual(t, back, x-1, "mode %s deposit %d", mode.Mode, x)
		}
	}
}

func TestPool_CreditNeverNegative(t *testing.T) {
	p := Pool{Capital: 100}
	require.NoError(t, p.Credit(-100))
	assert.Equal(t, int64(0), p.Capital)

	err := p.Credit(-1)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, int64(0), p.Capital)
}

func TestPool_NextRollID(t *testing.T) {
	p := Pool{}
	assert.Equal(t, uint64(0), p.NextRollID())
	assert.Equal(t, uint64(1), p.NextRollID())
	assert.Equal(t, uint64(2), p.CurrentRollID)
}
