package exchange

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
)

// BetRequest es lo que el creador de un roll registra en nombre de un bettor.
type BetRequest struct {
	Bettor     domain.Account
	Stake      int64
	Lower      uint32
	Upper      uint32
	Multiplier uint32
	Seed       uint64
}

// AnnounceRoll abre un roll nuevo de resultados [1, maxResult].
func (e *Exchange) AnnounceRoll(ctx context.Context, creator domain.Account, creatorID uint64, maxResult uint32, rakeRecipient domain.Account) (domain.Roll, error) {
	if creator == "" {
		return domain.Roll{}, domain.Unauthorizedf("creator is required")
	}
	if maxResult == 0 {
		return domain.Roll{}, domain.Validationf("max_result must be at least 1")
	}
	if rakeRecipient == "" || rakeRecipient == e.cfg.Account {
		return domain.Roll{}, domain.Validationf("invalid rake recipient %q", rakeRecipient)
	}

	var roll domain.Roll
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		pool, err := e.loadPool(ctx, tx)
		if err != nil {
			return err
		}
		if err := checkNotPaused(pool); err != nil {
			return err
		}
		if _, err := tx.FindRollByCreator(ctx, creator, creatorID); err == nil {
			return domain.Statef("creator %s already created a roll with creator_id %d", creator, creatorID)
		} else if domain.KindOf(err) != domain.KindNotFound {
			return err
		}

		roll = domain.Roll{
			ID:            pool.NextRollID(),
			Creator:       creator,
			CreatorID:     creatorID,
			MaxResult:     maxResult,
			RakeRecipient: rakeRecipient,
			State:         domain.RollOpen,
			CreatedAt:     e.now(),
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("exchange.AnnounceRoll: %w", err)
		}
		if err := tx.InsertRoll(ctx, roll); err != nil {
			return err
		}
		e.audit.RollAnnounced(ctx, roll)
		return nil
	})
	return roll, err
}

// AnnounceBet registra una bet contra un roll abierto del creador.
func (e *Exchange) AnnounceBet(ctx context.Context, creator domain.Account, creatorID uint64, req BetRequest) (domain.Bet, error) {
	if creator == "" {
		return domain.Bet{}, domain.Unauthorizedf("creator is required")
	}
	if req.Bettor == "" {
		return domain.Bet{}, domain.Validationf("bettor is required")
	}

	var bet domain.Bet
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		pool, err := e.loadPool(ctx, tx)
		if err != nil {
			return err
		}
		if err := checkNotPaused(pool); err != nil {
			return err
		}
		roll, err := tx.FindRollByCreator(ctx, creator, creatorID)
		if err != nil {
			return err
		}
		if roll.State != domain.RollOpen {
			return domain.Statef("roll %d is %s and accepts no more bets", roll.ID, roll.State)
		}
		if roll.BetCount >= e.cfg.MaxBetsPerRoll {
			return domain.Validationf("roll %d already has the maximum of %d bets", roll.ID, e.cfg.MaxBetsPerRoll)
		}

		bet = domain.Bet{
			RollID:     roll.ID,
			Bettor:     req.Bettor,
			Stake:      req.Stake,
			Lower:      req.Lower,
			Upper:      req.Upper,
			Multiplier: req.Multiplier,
			Seed:       req.Seed,
		}
		if err := e.cfg.Policy.Validate(bet, roll.MaxResult); err != nil {
			return err
		}
		if roll.TotalStake > math.MaxInt64-bet.Stake {
			return domain.Validationf("roll %d total stake would overflow", roll.ID)
		}

		if bet.ID, err = tx.InsertBet(ctx, bet); err != nil {
			return err
		}
		roll.TotalStake += bet.Stake
		roll.BetCount++
		if err := tx.UpdateRoll(ctx, roll); err != nil {
			return err
		}
		e.audit.BetAnnounced(ctx, roll, bet)
		return nil
	})
	return bet, err
}

// startRoll financia y bloquea un roll: memo "startroll <creator_id>".
// Corre dentro de la transacción de la transferencia entrante.
func (e *Exchange) startRoll(ctx context.Context, tx ports.Tx, from domain.Account, creatorID uint64, amount domain.Asset) error {
	roll, err := tx.FindRollByCreator(ctx, from, creatorID)
	if err != nil {
		return err
	}
	if roll.State != domain.RollOpen {
		return domain.Statef("roll %d was already started", roll.ID)
	}
	if roll.BetCount == 0 {
		return domain.Validationf("roll %d has no bets", roll.ID)
	}
	if amount.Amount != roll.TotalStake {
		return domain.Validationf("startroll amount %s must equal the total stake %s", amount, e.asset(roll.TotalStake))
	}

	locked, err := tx.LockedRolls(ctx)
	if err != nil {
		return fmt.Errorf("exchange.startRoll: %w", err)
	}
	if len(locked) >= e.cfg.MaxLockedRolls {
		return domain.Capacityf("%d rolls are already awaiting settlement", len(locked))
	}

	bets, err := tx.BetsForRoll(ctx, roll.ID)
	if err != nil {
		return fmt.Errorf("exchange.startRoll: %w", err)
	}

	// Curva de pagos, rake/fee y requisito de capital.
	curve := domain.BuildPayoutLedger(roll.MaxResult, bets)
	seeds := make([]uint64, len(bets))
	var rake, fee int64
	for i, b := range bets {
		r, f := e.cfg.Policy.Fees(b, roll.MaxResult)
		rake += r
		fee += f
		seeds[i] = b.Seed
	}
	roll.Rake, roll.Fee = rake, fee
	roll.Collected = roll.TotalStake - rake - fee
	roll.RequiredCapital = domain.RequiredCapital(curve.Ranges(), roll.Collected, roll.MaxResult)
	roll.MaxLoss = domain.WorstCaseLoss(curve, roll.TotalStake)

	pool, err := e.loadPool(ctx, tx)
	if err != nil {
		return err
	}
	if pool.Capital < roll.RequiredCapital {
		return domain.Capacityf("bankroll %s is below the required capital %s for roll %d",
			e.asset(pool.Capital), e.asset(roll.RequiredCapital), roll.ID)
	}
	var reserved int64
	for _, r := range locked {
		reserved += r.MaxLoss
	}
	if free := pool.Capital - rake - fee - reserved; free < roll.MaxLoss {
		return domain.Capacityf("bankroll cannot cover the worst case %s of roll %d (free %s)",
			e.asset(roll.MaxLoss), roll.ID, e.asset(free))
	}

	before := pool.Capital
	if err := pool.Credit(-(rake + fee)); err != nil {
		return err
	}
	if err := tx.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("exchange.startRoll: %w", err)
	}
	if rake > 0 {
		if err := e.ledger.Transfer(ctx, tx, e.cfg.Account, roll.RakeRecipient, e.asset(rake), "roll rake"); err != nil {
			return err
		}
	}
	if fee > 0 {
		if err := e.ledger.Transfer(ctx, tx, e.cfg.Account, e.cfg.FeeAccount, e.asset(fee), "roll fee"); err != nil {
			return err
		}
	}

	value, err := e.freeSigningValue(ctx, tx, domain.SigningValue(seeds, roll.ID))
	if err != nil {
		return err
	}
	now := e.now()
	roll.SigningValue = value
	roll.LockedAt = &now
	if err := roll.Transition(domain.RollLocked); err != nil {
		return err
	}
	if err := e.oracle.RequestRandom(ctx, tx, e.cfg.Account, roll.ID, value); err != nil {
		return err
	}
	if err := roll.Transition(domain.RollAwaitingRandomness); err != nil {
		return err
	}
	if err := tx.UpdateRoll(ctx, roll); err != nil {
		return err
	}

	e.audit.RollStarted(ctx, roll)
	if rake+fee > 0 {
		e.audit.BankrollChanged(ctx, before, pool.Capital, fmt.Sprintf("roll %d rake and fee", roll.ID))
	}
	return nil
}

// freeSigningValue incrementa value hasta dar con uno nunca usado.
func (e *Exchange) freeSigningValue(ctx context.Context, tx ports.Tx, value uint64) (uint64, error) {
	for range e.cfg.MaxProbes {
		used, err := tx.ValueUsed(ctx, value)
		if err != nil {
			return 0, fmt.Errorf("exchange.freeSigningValue: %w", err)
		}
		if !used {
			return value, nil
		}
		value++
	}
	return 0, domain.Statef("no unused signing value after %d probes", e.cfg.MaxProbes)
}
