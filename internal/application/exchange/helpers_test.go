package exchange_test

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"testing"

	"github.com/alejandrodnm/bankroll/internal/adapters/ledger"
	"github.com/alejandrodnm/bankroll/internal/adapters/storage"
	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/stretchr/testify/require"
)

const (
	bankroll = domain.Account("bankroll")
	admin    = domain.Account("admin")
	feeAcct  = domain.Account("protocolfee")
	creator  = domain.Account("dicegame")
	rakeAcct = domain.Account("dicerake")
)

var (
	wax   = domain.Symbol{Code: "WAX", Precision: 8}
	claim = domain.Symbol{Code: "BRCLAIM", Precision: 10}
)

// fakeOracle registra los compromisos; las pruebas entregan el resultado a mano.
type fakeOracle struct {
	requests []uint64 // signing values
	err      error
}

func (o *fakeOracle) RequestRandom(ctx context.Context, tx ports.Tx, _ domain.Account, _ uint64, value uint64) error {
	if o.err != nil {
		return o.err
	}
	if err := tx.MarkValueUsed(ctx, value); err != nil {
		return err
	}
	o.requests = append(o.requests, value)
	return nil
}

type result struct {
	creator   domain.Account
	creatorID uint64
	outcome   uint32
}

type recordingAuditor struct {
	mu      sync.Mutex
	results []result
	changes int
}

func (a *recordingAuditor) RollAnnounced(context.Context, domain.Roll) {}
func (a *recordingAuditor) BetAnnounced(context.Context, domain.Roll, domain.Bet) {}
func (a *recordingAuditor) RollStarted(context.Context, domain.Roll) {}
func (a *recordingAuditor) RandomnessReceived(context.Context, domain.Roll, uint32) {}
func (a *recordingAuditor) Withdrawn(context.Context, domain.Account, int64, int64) {}
func (a *recordingAuditor) BankrollChanged(context.Context, int64, int64, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changes++
}
func (a *recordingAuditor) NotifyResult(_ context.Context, c domain.Account, id uint64, outcome uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result{c, id, outcome})
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	db     *storage.SQLiteStorage
	ledger *ledger.Ledger
	oracle *fakeOracle
	audit  *recordingAuditor
	ex     *exchange.Exchange
}

func newHarness(t *testing.T, mode domain.ShareMode) *harness {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		ledger: ledger.New(),
		oracle: &fakeOracle{},
		audit:  &recordingAuditor{},
	}
	h.ex, err = exchange.New(exchange.Config{
		Account:    bankroll,
		Admin:      admin,
		FeeAccount: feeAcct,
		Asset:      wax,
		Claim:      claim,
		ShareMode:  mode,
	}, db, h.ledger, h.oracle, h.audit)
	require.NoError(t, err)
	h.ledger.Register(bankroll, h.ex)
	return h
}

func (h *harness) fund(acct domain.Account, amount int64) {
	h.t.Helper()
	require.NoError(h.t, h.db.Atomic(h.ctx, func(tx ports.Tx) error {
		return h.ledger.Issue(h.ctx, tx, acct, domain.NewAsset(amount, wax), "faucet")
	}))
}

func (h *harness) transfer(from, to domain.Account, amount domain.Asset, memo string) error {
	return h.db.Atomic(h.ctx, func(tx ports.Tx) error {
		return h.ledger.Transfer(h.ctx, tx, from, to, amount, memo)
	})
}

// invest financia al inversor y deposita amount.
func (h *harness) invest(investor domain.Account, amount int64) {
	h.t.Helper()
	h.fund(investor, amount)
	require.NoError(h.t, h.transfer(investor, bankroll, domain.NewAsset(amount, wax), "deposit"))
}

func (h *harness) balance(acct domain.Account, sym domain.Symbol) int64 {
	h.t.Helper()
	var out int64
	require.NoError(h.t, h.db.Atomic(h.ctx, func(tx ports.Tx) error {
		var err error
		out, err = tx.Balance(h.ctx, acct, sym.Code)
		return err
	}))
	return out
}

func (h *harness) pool() domain.Pool {
	h.t.Helper()
	snap, err := h.ex.Status(h.ctx)
	require.NoError(h.t, err)
	return snap.Pool
}

func (h *harness) outstanding(bettor domain.Account) int64 {
	h.t.Helper()
	a, err := h.ex.Outstanding(h.ctx, bettor)
	require.NoError(h.t, err)
	return a.Amount
}

// openRoll anuncia un roll con las bets dadas y devuelve su total de stake.
func (h *harness) openRoll(creatorID uint64, n uint32, bets ...exchange.BetRequest) (domain.Roll, int64) {
	h.t.Helper()
	roll, err := h.ex.AnnounceRoll(h.ctx, creator, creatorID, n, rakeAcct)
	require.NoError(h.t, err)
	var total int64
	for _, b := range bets {
		_, err := h.ex.AnnounceBet(h.ctx, creator, creatorID, b)
		require.NoError(h.t, err)
		total += b.Stake
	}
	return roll, total
}

func (h *harness) startRoll(creatorID uint64, amount int64) error {
	h.t.Helper()
	h.fund(creator, amount)
	return h.transfer(creator, bankroll, domain.NewAsset(amount, wax), "startroll "+strconv.FormatUint(creatorID, 10))
}

func (h *harness) settle(rollID uint64, outcome uint32) error {
	return h.db.Atomic(h.ctx, func(tx ports.Tx) error {
		return h.ex.ReceiveRandomness(h.ctx, tx, rollID, hashFor(outcome))
	})
}

// hashFor construye un hash cuyo prefijo de 128 bits reduce a outcome.
func hashFor(outcome uint32) [32]byte {
	var h [32]byte
	binary.BigEndian.PutUint64(h[8:16], uint64(outcome-1))
	return h
}
