package storage_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/bankroll/internal/adapters/storage"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeRoll(id uint64, creatorID uint64) domain.Roll {
	return domain.Roll{
		ID:            id,
		Creator:       "dicegame",
		CreatorID:     creatorID,
		MaxResult:     100,
		RakeRecipient: "rakeacct",
		State:         domain.RollOpen,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStorage_PoolRoundTrip(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	err := db.Atomic(ctx, func(tx ports.Tx) error {
		p, err := tx.LoadPool(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Pool{}, p)

		return tx.SavePool(ctx, domain.Pool{Capital: 500, TotalWeight: 1_000_000, CurrentRollID: 3, Paused: true})
	})
	require.NoError(t, err)

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		p, err := tx.LoadPool(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Pool{Capital: 500, TotalWeight: 1_000_000, CurrentRollID: 3, Paused: true}, p)
		return nil
	}))
}

func TestSQLiteStorage_AtomicRollsBack(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Atomic(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SavePool(ctx, domain.Pool{Capital: 999}))
		require.NoError(t, tx.InsertRoll(ctx, makeRoll(0, 1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		p, err := tx.LoadPool(ctx)
		require.NoError(t, err)
		assert.Zero(t, p.Capital)

		_, err = tx.GetRoll(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestSQLiteStorage_Rolls(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		r := makeRoll(7, math.MaxUint64)
		require.NoError(t, tx.InsertRoll(ctx, r))

		// creator_id repetido
		err := tx.InsertRoll(ctx, makeRoll(8, math.MaxUint64))
		assert.ErrorIs(t, err, domain.ErrState)

		got, err := tx.FindRollByCreator(ctx, "dicegame", math.MaxUint64)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), got.ID)
		assert.Equal(t, uint64(math.MaxUint64), got.CreatorID)
		assert.Equal(t, domain.RollOpen, got.State)
		assert.Nil(t, got.LockedAt)
		assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Second)

		_, err = tx.FindRollByCreator(ctx, "other", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestSQLiteStorage_LockedRollsUsesState(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		for i := uint64(0); i < 3; i++ {
			require.NoError(t, tx.InsertRoll(ctx, makeRoll(i, i)))
		}
		r, err := tx.GetRoll(ctx, 1)
		require.NoError(t, err)
		now := time.Now().UTC()
		r.State = domain.RollAwaitingRandomness
		r.LockedAt = &now
		r.RequiredCapital = 1234
		r.SigningValue = math.MaxUint64 - 1
		require.NoError(t, tx.UpdateRoll(ctx, r))

		locked, err := tx.LockedRolls(ctx)
		require.NoError(t, err)
		require.Len(t, locked, 1)
		assert.Equal(t, uint64(1), locked[0].ID)
		assert.Equal(t, int64(1234), locked[0].RequiredCapital)
		assert.Equal(t, uint64(math.MaxUint64-1), locked[0].SigningValue)
		require.NotNil(t, locked[0].LockedAt)

		all, err := tx.ListRolls(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, tx.DeleteRoll(ctx, 1))
		assert.ErrorIs(t, tx.DeleteRoll(ctx, 1), domain.ErrNotFound)
		assert.ErrorIs(t, tx.UpdateRoll(ctx, r), domain.ErrNotFound)
		return nil
	}))
}

func TestSQLiteStorage_BetsKeepRegistrationOrder(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		seeds := []uint64{math.MaxUint64, 1, 1 << 63}
		for i, seed := range seeds {
			id, err := tx.InsertBet(ctx, domain.Bet{
				RollID: 4, Bettor: "alice", Stake: int64(100 * (i + 1)),
				Lower: 1, Upper: 50, Multiplier: 1900, Seed: seed,
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(i), id)
		}
		// Otro roll empieza en 0.
		id, err := tx.InsertBet(ctx, domain.Bet{RollID: 5, Bettor: "bob", Stake: 1, Lower: 1, Upper: 1, Multiplier: 2000})
		require.NoError(t, err)
		assert.Equal(t, uint64(0), id)

		bets, err := tx.BetsForRoll(ctx, 4)
		require.NoError(t, err)
		require.Len(t, bets, 3)
		for i, b := range bets {
			assert.Equal(t, uint64(i), b.ID)
			assert.Equal(t, seeds[i], b.Seed)
			assert.Equal(t, domain.Account("alice"), b.Bettor)
		}

		require.NoError(t, tx.DeleteBets(ctx, 4))
		bets, err = tx.BetsForRoll(ctx, 4)
		require.NoError(t, err)
		assert.Empty(t, bets)
		return nil
	}))
}

func TestSQLiteStorage_KeyValueTablesDeleteAtZero(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SetWeight(ctx, "inv1", 10))
		require.NoError(t, tx.SetWeight(ctx, "inv2", 30))
		require.NoError(t, tx.SetWeight(ctx, "inv1", 20))

		w, err := tx.Weight(ctx, "inv1")
		require.NoError(t, err)
		assert.Equal(t, int64(20), w)

		investors, err := tx.ListInvestors(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Investor{{Account: "inv2", Weight: 30}, {Account: "inv1", Weight: 20}}, investors)

		require.NoError(t, tx.SetWeight(ctx, "inv1", 0))
		investors, err = tx.ListInvestors(ctx)
		require.NoError(t, err)
		assert.Len(t, investors, 1)

		require.NoError(t, tx.SetOutstanding(ctx, "alice", 1900))
		out, err := tx.Outstanding(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1900), out)
		require.NoError(t, tx.SetOutstanding(ctx, "alice", 0))
		list, err := tx.ListOutstanding(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		out, err = tx.Outstanding(ctx, "nobody")
		require.NoError(t, err)
		assert.Zero(t, out)
		return nil
	}))
}

func TestSQLiteStorage_Balances(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "alice", "WAX", 50))
		require.NoError(t, tx.SetBalance(ctx, "alice", "BRCLAIM", 7))
		require.NoError(t, tx.SetSupply(ctx, "BRCLAIM", 7))

		b, err := tx.Balance(ctx, "alice", "WAX")
		require.NoError(t, err)
		assert.Equal(t, int64(50), b)

		s, err := tx.Supply(ctx, "BRCLAIM")
		require.NoError(t, err)
		assert.Equal(t, int64(7), s)

		frozen, err := tx.Frozen(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, frozen)
		require.NoError(t, tx.SetFrozen(ctx, "alice", true))
		require.NoError(t, tx.SetFrozen(ctx, "alice", true))
		frozen, err = tx.Frozen(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, frozen)
		require.NoError(t, tx.SetFrozen(ctx, "alice", false))
		frozen, err = tx.Frozen(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, frozen)
		return nil
	}))
}

func TestSQLiteStorage_Deliveries(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		d := domain.Delivery{
			ID: "d-1", RollID: 1, BetID: 0, Bettor: "alice", Amount: 1900,
			Status: domain.DeliveryPending, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, tx.EnqueueDelivery(ctx, d))
		assert.ErrorIs(t, tx.EnqueueDelivery(ctx, d), domain.ErrState)

		d2 := d
		d2.ID, d2.BetID, d2.CreatedAt = "d-2", 1, now.Add(time.Second)
		require.NoError(t, tx.EnqueueDelivery(ctx, d2))

		pending, err := tx.PendingDeliveries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "d-1", pending[0].ID)

		d.Status, d.Attempts, d.LastError = domain.DeliveryDelivered, 1, ""
		require.NoError(t, tx.UpdateDelivery(ctx, d))

		pending, err = tx.PendingDeliveries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "d-2", pending[0].ID)

		got, err := tx.GetDelivery(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryDelivered, got.Status)
		assert.Equal(t, 1, got.Attempts)

		_, err = tx.GetDelivery(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestSQLiteStorage_OracleJobs(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		c, err := tx.LoadOracleConfig(ctx)
		require.NoError(t, err)
		assert.Nil(t, c.PubKey)
		assert.False(t, c.Paused)

		c.PubKey = []byte{4, 1, 2, 3}
		id := c.NextJobID()
		require.NoError(t, tx.SaveOracleConfig(ctx, c))

		job := domain.RandomJob{
			ID: id, Caller: "bankroll", AssocID: 9,
			SigningValue: math.MaxUint64, SigningHash: domain.SigningHash(math.MaxUint64),
		}
		require.NoError(t, tx.InsertJob(ctx, job))

		got, err := tx.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, job, got)

		jobs, err := tx.OpenJobs(ctx)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)

		require.NoError(t, tx.DeleteJob(ctx, id))
		_, err = tx.GetJob(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		c, err = tx.LoadOracleConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{4, 1, 2, 3}, c.PubKey)
		assert.Equal(t, uint64(1), c.CurrentJobID)
		return nil
	}))
}

func TestSQLiteStorage_UsedValues(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.Atomic(ctx, func(tx ports.Tx) error {
		used, err := tx.ValueUsed(ctx, 1<<63)
		require.NoError(t, err)
		assert.False(t, used)

		require.NoError(t, tx.MarkValueUsed(ctx, 1<<63))
		assert.ErrorIs(t, tx.MarkValueUsed(ctx, 1<<63), domain.ErrState)

		used, err = tx.ValueUsed(ctx, 1<<63)
		require.NoError(t, err)
		assert.True(t, used)
		return nil
	}))
}
