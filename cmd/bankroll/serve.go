package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/bankroll/config"
	"github.com/alejandrodnm/bankroll/internal/adapters/httpapi"
	"github.com/alejandrodnm/bankroll/internal/adapters/oracle"
	"github.com/alejandrodnm/bankroll/internal/application/payout"
)

// runServe arranca la API HTTP, el signer del oráculo y el dispatcher de
// pagos; vuelve cuando ctx se cancela y todos han parado.
func runServe(ctx context.Context, cfg *config.Config, a *app) error {
	var signer *oracle.KeySigner
	if cfg.Signer.Enabled {
		if cfg.Signer.PrivateKey == "" {
			return fmt.Errorf("serve: signer enabled but no private key (set SIGNER_PRIVATE_KEY)")
		}
		var err error
		signer, err = oracle.NewKeySigner(cfg.SignerSettings(), a.oracle, cfg.Signer.PrivateKey)
		if err != nil {
			return err
		}
		if err := registerSignerKey(ctx, a.oracle, signer, cfg.Oracle.Account); err != nil {
			return err
		}
	}

	srv := httpapi.New(a.ex, a.oracle, a.ledger, a.store)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				slog.Error("component stopped with error", "component", name, "err", err)
				errOnce.Do(func() { runErr = fmt.Errorf("%s: %w", name, err) })
				cancel()
			}
		}()
	}

	start("http", func(ctx context.Context) error { return srv.Listen(ctx, cfg.HTTP.Addr) })
	if signer != nil {
		start("signer", signer.Run)
	}
	if cfg.Payouts.Enabled {
		start("payouts", payout.New(cfg.PayoutSettings(), a.ex).Run)
	}

	wg.Wait()
	slog.Info("bankroll stopped cleanly")
	return runErr
}

// registerSignerKey publica la clave del signer en el oráculo si aún no es
// la registrada. Con jobs abiertos la rotación falla: hay que esperar a que
// el signer anterior los cierre.
func registerSignerKey(ctx context.Context, o *oracle.Oracle, signer *oracle.KeySigner, oracleAccount string) error {
	current, err := o.Config(ctx)
	if err != nil {
		return err
	}
	if bytes.Equal(current.PubKey, signer.PublicKey()) {
		return nil
	}
	if err := o.SetPubKey(ctx, o.Account(), signer.PublicKey()); err != nil {
		return fmt.Errorf("serve: register signer key for %s: %w", oracleAccount, err)
	}
	slog.Info("oracle public key registered", "oracle", oracleAccount)
	return nil
}
