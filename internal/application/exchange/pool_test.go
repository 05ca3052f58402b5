package exchange_test

import (
	"testing"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit_TokenMode(t *testing.T) {
	h := newHarness(t, domain.ShareToken)

	h.invest("a", 1_000)
	// bootstrap: 8 → 10 decimales
	assert.Equal(t, int64(100_000), h.balance("a", claim))

	h.invest("b", 500)
	assert.Equal(t, int64(50_000), h.balance("b", claim))
	assert.Equal(t, int64(1_500), h.pool().Capital)

	st, err := h.ex.StakeOf(h.ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), st.Shares)
	assert.Equal(t, int64(150_000), st.Supply)
	assert.Equal(t, int64(500), st.Value.Amount)
	assert.Equal(t, wax, st.Value.Symbol)
}

func TestDeposit_TooSmallForAShare(t *testing.T) {
	h := newHarness(t, domain.ShareWeight)
	h.invest("whale", 1_000_000_000)

	// 1 / 1e9 × 1e6 < 1
	h.fund("dust", 1)
	err := h.transfer("dust", bankroll, domain.NewAsset(1, wax), "deposit")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(1), h.balance("dust", wax))
}

func TestDeposit_ClaimOverflowReverts(t *testing.T) {
	h := newHarness(t, domain.ShareToken)

	// 2e17 × 10^2 no cabe en int64.
	const amount = 200_000_000_000_000_000
	h.fund("a", amount)
	err := h.transfer("a", bankroll, domain.NewAsset(amount, wax), "deposit")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(amount), h.balance("a", wax))
	assert.Zero(t, h.balance("a", claim))
	assert.Zero(t, h.pool().Capital)
}

func TestWithdrawTokens_RoundTrip(t *testing.T) {
	h := newHarness(t, domain.ShareToken)
	h.invest("a", 1_000)
	h.invest("b", 3_000)

	tokens := h.balance("b", claim)
	require.NoError(t, h.transfer("b", bankroll, domain.NewAsset(tokens, claim), "withdraw"))

	assert.Equal(t, int64(3_000), h.balance("b", wax))
	assert.Zero(t, h.balance("b", claim))
	assert.Zero(t, h.balance(bankroll, claim), "claim tokens are retired")
	assert.Equal(t, int64(1_000), h.pool().Capital)

	snap, err := h.ex.Status(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), snap.ShareSupply)
}

func TestWithdrawTokens_BadMemo(t *testing.T) {
	h := newHarness(t, domain.ShareToken)
	h.invest("a", 1_000)

	err := h.transfer("a", bankroll, domain.NewAsset(10, claim), "deposit")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(100_000), h.balance("a", claim))
}

func TestWithdraw_BlockedByLockedRoll(t *testing.T) {
	h := newHarness(t, domain.ShareToken)
	h.invest("inv", 20_000) // 2_000_000 claim
	_, total := h.openRoll(1, 100, halfBet("alice"))
	require.NoError(t, h.startRoll(1, total))
	require.Equal(t, int64(19_957), h.pool().Capital)

	// 60000 tokens valen 598: quedarían 19359 < 19718 requeridos.
	err := h.transfer("inv", bankroll, domain.NewAsset(60_000, claim), "withdraw")
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, int64(2_000_000), h.balance("inv", claim))
	assert.Equal(t, int64(19_957), h.pool().Capital)

	// 20000 tokens valen 199: quedan 19758, suficiente.
	require.NoError(t, h.transfer("inv", bankroll, domain.NewAsset(20_000, claim), "withdraw"))
	assert.Equal(t, int64(199), h.balance("inv", wax))
	assert.Equal(t, int64(19_758), h.pool().Capital)
	assert.Equal(t, int64(1_980_000), h.balance("inv", claim))
}

func TestWithdraw_WeightMode(t *testing.T) {
	h := newHarness(t, domain.ShareWeight)
	h.invest("a", 1_000)
	h.invest("b", 3_000)

	snap, err := h.ex.Status(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000), snap.Pool.TotalWeight)
	require.Len(t, snap.Investors, 2)

	_, err = h.ex.Withdraw(h.ctx, "b", 3_000_001)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.ex.Withdraw(h.ctx, "nobody", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.ex.Withdraw(h.ctx, "b", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := h.ex.Withdraw(h.ctx, "b", 3_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), got.Amount)
	assert.Equal(t, int64(3_000), h.balance("b", wax))

	snap, err = h.ex.Status(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), snap.Pool.TotalWeight)
	assert.Equal(t, int64(1_000), snap.Pool.Capital)
	require.Len(t, snap.Investors, 1, "zero weight rows are dropped")
	assert.Equal(t, domain.Account("a"), snap.Investors[0].Account)
}

func TestWithdraw_WeightOnlyInWeightMode(t *testing.T) {
	h := newHarness(t, domain.ShareToken)
	h.invest("a", 1_000)
	_, err := h.ex.Withdraw(h.ctx, "a", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWeightMode_ClaimTransferRejected(t *testing.T) {
	h := newHarness(t, domain.ShareWeight)
	require.NoError(t, h.db.Atomic(h.ctx, func(tx ports.Tx) error {
		return h.ledger.Issue(h.ctx, tx, "a", domain.NewAsset(10, claim), "")
	}))
	err := h.transfer("a", bankroll, domain.NewAsset(10, claim), "withdraw")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
