package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"golang.org/x/time/rate"
)

// Deliverer es la parte del exchange que usa el dispatcher.
type Deliverer interface {
	PendingDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error)
	DeliverPayout(ctx context.Context, deliveryID string) (domain.Delivery, error)
	RecordDeliveryFailure(ctx context.Context, deliveryID string, cause error, maxAttempts int) (domain.Delivery, error)
}

// Config contiene la configuración del dispatcher.
type Config struct {
	Interval    time.Duration
	BatchSize   int     // entregas leídas por ciclo
	Workers     int     // goroutines de entrega (0 = NumCPU)
	RatePerSec  float64 // entregas por segundo entre todos los workers
	MaxAttempts int     // al llegar aquí la entrega pasa a FAILED
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Result resume un ciclo de entregas.
type Result struct {
	Delivered int
	Failed    int // fallos de este ciclo (reintentables o no)
	GaveUp    int // entregas que pasaron a FAILED
}

// Dispatcher ejecuta las entregas programadas al liquidar un roll. Cada
// entrega corre en su propia transacción: un bettor que no puede recibir no
// bloquea al resto ni pierde su saldo pendiente.
type Dispatcher struct {
	cfg     Config
	ex      Deliverer
	limiter *rate.Limiter
}

// New crea un Dispatcher.
func New(cfg Config, ex Deliverer) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:     cfg,
		ex:      ex,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), max(1, cfg.Workers)),
	}
}

// Run ejecuta ciclos de entrega hasta que el contexto se cancele.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("payout dispatcher starting",
		"interval", d.cfg.Interval,
		"workers", d.cfg.Workers,
		"max_attempts", d.cfg.MaxAttempts,
	)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("payout cycle failed", "err", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("payout dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce lee un lote de entregas pendientes y las reparte entre los workers.
func (d *Dispatcher) RunOnce(ctx context.Context) (Result, error) {
	pending, err := d.ex.PendingDeliveries(ctx, d.cfg.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("payout.RunOnce: pending deliveries: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	workCh := make(chan domain.Delivery, len(pending))
	for _, p := range pending {
		workCh <- p
	}
	close(workCh)

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	workers := min(d.cfg.Workers, len(pending))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range workCh {
				outcome := d.deliver(ctx, p)
				mu.Lock()
				switch outcome {
				case delivered:
					res.Delivered++
				case failed:
					res.Failed++
				case gaveUp:
					res.Failed++
					res.GaveUp++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	slog.Info("payout cycle complete",
		"queued", len(pending),
		"delivered", res.Delivered,
		"failed", res.Failed,
		"gave_up", res.GaveUp,
	)
	return res, ctx.Err()
}

type outcome int

const (
	skipped outcome = iota
	delivered
	failed
	gaveUp
)

func (d *Dispatcher) deliver(ctx context.Context, p domain.Delivery) outcome {
	if err := d.limiter.Wait(ctx); err != nil {
		return skipped
	}

	_, err := d.ex.DeliverPayout(ctx, p.ID)
	switch {
	case err == nil:
		slog.Debug("payout delivered", "delivery_id", p.ID, "bettor", p.Bettor, "amount", p.Amount)
		return delivered
	case !errors.Is(err, domain.ErrDelivery):
		// Ya resuelta en otro ciclo, o fallo de infraestructura: no cuenta como intento.
		slog.Debug("payout skipped", "delivery_id", p.ID, "err", err)
		return skipped
	}

	rec, recErr := d.ex.RecordDeliveryFailure(ctx, p.ID, err, d.cfg.MaxAttempts)
	if recErr != nil {
		slog.Warn("record delivery failure", "delivery_id", p.ID, "err", recErr)
		return failed
	}
	if rec.Status == domain.DeliveryFailedStatus {
		slog.Warn("payout delivery abandoned; balance stays claimable",
			"delivery_id", p.ID,
			"bettor", p.Bettor,
			"attempts", rec.Attempts,
			"err", err,
		)
		return gaveUp
	}
	slog.Warn("payout delivery failed", "delivery_id", p.ID, "bettor", p.Bettor, "attempts", rec.Attempts, "err", err)
	return failed
}
