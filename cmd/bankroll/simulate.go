package main

import (
	"context"
	"flag"
	"math"

	"github.com/alejandrodnm/bankroll/config"
	"github.com/alejandrodnm/bankroll/internal/adapters/notify"
	"github.com/alejandrodnm/bankroll/internal/application/simulate"
	"github.com/alejandrodnm/bankroll/internal/domain"
)

// exampleBets es un roll de ejemplo sobre 1..1000 con apuestas de 20 a 100
// unidades del activo, todas dentro de la política por defecto.
func exampleBets(sym domain.Symbol) []domain.Bet {
	unit := int64(math.Pow10(int(sym.Precision)))
	return []domain.Bet{
		{Stake: 50 * unit, Lower: 1, Upper: 500, Multiplier: 1900},
		{Stake: 20 * unit, Lower: 410, Upper: 650, Multiplier: 3900},
		{Stake: 40 * unit, Lower: 200, Upper: 300, Multiplier: 9000},
		{Stake: 100 * unit, Lower: 100, Upper: 900, Multiplier: 1200},
	}
}

func runSimulate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	rolls := fs.Int("rolls", 100, "rolls per experiment")
	experiments := fs.Int("experiments", 10_000, "number of experiments")
	watch := fs.Float64("watch", 0.5, "report experiments ending below this fraction of the start capital")
	seed := fs.Uint64("seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exCfg, err := cfg.ExchangeSettings()
	if err != nil {
		return err
	}
	rep, err := simulate.Run(ctx, simulate.Config{
		Rolls:         *rolls,
		Experiments:   *experiments,
		WatchFraction: *watch,
		Seed:          *seed,
	}, exCfg.Policy, 1000, exampleBets(exCfg.Asset))
	if err != nil {
		return err
	}
	notify.NewConsole().PrintSimulation(rep, exCfg.Asset)
	return nil
}
