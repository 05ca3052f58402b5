package payout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/bankroll/internal/application/payout"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	mu         sync.Mutex
	deliveries map[string]*domain.Delivery
	failing    map[domain.Account]bool
	paid       map[domain.Account]int64
}

func newFake(ds ...domain.Delivery) *fakeExchange {
	f := &fakeExchange{
		deliveries: make(map[string]*domain.Delivery),
		failing:    make(map[domain.Account]bool),
		paid:       make(map[domain.Account]int64),
	}
	for i := range ds {
		d := ds[i]
		d.Status = domain.DeliveryPending
		f.deliveries[d.ID] = &d
	}
	return f
}

func (f *fakeExchange) PendingDeliveries(_ context.Context, limit int) ([]domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Delivery
	for _, d := range f.deliveries {
		if d.Status == domain.DeliveryPending && len(out) < limit {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeExchange) DeliverPayout(_ context.Context, id string) (domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[id]
	if !ok {
		return domain.Delivery{}, domain.NotFoundf("delivery %s", id)
	}
	if d.Status != domain.DeliveryPending {
		return *d, domain.Statef("delivery %s is %s", id, d.Status)
	}
	if f.failing[d.Bettor] {
		return *d, domain.DeliveryFailed("delivery "+id, domain.Unauthorizedf("account %s is frozen", d.Bettor))
	}
	d.Status = domain.DeliveryDelivered
	d.Attempts++
	f.paid[d.Bettor] += d.Amount
	return *d, nil
}

func (f *fakeExchange) RecordDeliveryFailure(_ context.Context, id string, cause error, maxAttempts int) (domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.deliveries[id]
	d.Attempts++
	d.LastError = cause.Error()
	if d.Attempts >= maxAttempts {
		d.Status = domain.DeliveryFailedStatus
	}
	return *d, nil
}

func fastConfig() payout.Config {
	return payout.Config{Interval: 10 * time.Millisecond, Workers: 3, RatePerSec: 1000, MaxAttempts: 2}
}

func TestRunOnce_DeliversAll(t *testing.T) {
	f := newFake(
		domain.Delivery{ID: "d1", Bettor: "alice", Amount: 100},
		domain.Delivery{ID: "d2", Bettor: "bob", Amount: 50},
		domain.Delivery{ID: "d3", Bettor: "alice", Amount: 25},
	)
	res, err := payout.New(fastConfig(), f).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payout.Result{Delivered: 3}, res)
	assert.Equal(t, int64(125), f.paid["alice"])
	assert.Equal(t, int64(50), f.paid["bob"])
}

func TestRunOnce_FailureIsolated(t *testing.T) {
	f := newFake(
		domain.Delivery{ID: "d1", Bettor: "frozen", Amount: 100},
		domain.Delivery{ID: "d2", Bettor: "bob", Amount: 50},
	)
	f.failing["frozen"] = true
	d := payout.New(fastConfig(), f)

	res, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payout.Result{Delivered: 1, Failed: 1}, res)
	assert.Equal(t, int64(50), f.paid["bob"])
	assert.Equal(t, domain.DeliveryPending, f.deliveries["d1"].Status)
	assert.Contains(t, f.deliveries["d1"].LastError, "frozen")

	// Segundo intento: se alcanza MaxAttempts y deja de reintentarse.
	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payout.Result{Failed: 1, GaveUp: 1}, res)
	assert.Equal(t, domain.DeliveryFailedStatus, f.deliveries["d1"].Status)

	res, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payout.Result{}, res)
}

func TestRunOnce_Empty(t *testing.T) {
	res, err := payout.New(fastConfig(), newFake()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFake(domain.Delivery{ID: "d1", Bettor: "alice", Amount: 10})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- payout.New(fastConfig(), f).Run(ctx) }()

	assert.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.paid["alice"] == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
