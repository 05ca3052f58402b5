package simulate

// simulate.go: comprobación Monte-Carlo del requisito de capital.
//
// Se calcula el capital mínimo de un roll con la misma heurística que usa el
// exchange, se arranca con ese capital y se juegan R rolls seguidos con las
// mismas bets, escaladas al tamaño actual del bankroll. Repitiendo K
// experimentos se estima la probabilidad de acabar por debajo de una fracción
// del capital inicial.

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// Config contiene los parámetros de la simulación.
type Config struct {
	Rolls         int     // rolls por experimento
	Experiments   int     // número de experimentos
	WatchFraction float64 // umbral: fracción del capital inicial
	StartCapital  int64   // 0 = capital requerido por la heurística
	Seed          uint64
	Workers       int // 0 = NumCPU
}

func (c Config) withDefaults() Config {
	if c.Rolls <= 0 {
		c.Rolls = 100
	}
	if c.Experiments <= 0 {
		c.Experiments = 10_000
	}
	if c.WatchFraction <= 0 {
		c.WatchFraction = 0.5
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// Report es el resultado de una simulación.
type Report struct {
	MaxResult       uint32
	Bets            int
	TotalStake      int64
	Collected       int64
	RequiredCapital int64
	MaxLoss         int64
	StartCapital    int64
	Rolls           int
	Experiments     int
	WatchFraction   float64
	BelowWatch      int     // experimentos que acabaron bajo el umbral
	MeanFinal       float64 // capital final medio
	WorstFinal      float64
}

// BelowWatchRatio es la fracción de experimentos bajo el umbral.
func (r Report) BelowWatchRatio() float64 {
	if r.Experiments == 0 {
		return 0
	}
	return float64(r.BelowWatch) / float64(r.Experiments)
}

// Run valida las bets contra policy y ejecuta la simulación.
func Run(ctx context.Context, cfg Config, policy domain.BetPolicy, n uint32, bets []domain.Bet) (Report, error) {
	cfg = cfg.withDefaults()
	if n == 0 {
		return Report{}, domain.Validationf("max_result must be at least 1")
	}
	if len(bets) == 0 {
		return Report{}, domain.Validationf("at least one bet is required")
	}

	rep := Report{
		MaxResult:     n,
		Bets:          len(bets),
		Rolls:         cfg.Rolls,
		Experiments:   cfg.Experiments,
		WatchFraction: cfg.WatchFraction,
	}

	// Resultado neto de cada bet para el pool: lo cobrado menos rake/fee, y
	// el payout a restar si gana.
	plays := make([]play, len(bets))
	for i, b := range bets {
		if err := policy.Validate(b, n); err != nil {
			return Report{}, fmt.Errorf("simulate.Run: bet %d: %w", i, err)
		}
		rake, fee := policy.Fees(b, n)
		rep.TotalStake += b.Stake
		rep.Collected += b.Stake - rake - fee
		plays[i] = play{
			lower:  b.Lower,
			upper:  b.Upper,
			kept:   float64(b.Stake - rake - fee),
			payout: float64(b.Payout()),
		}
	}
	curve := domain.BuildPayoutLedger(n, bets)
	rep.RequiredCapital = domain.RequiredCapital(curve.Ranges(), rep.Collected, n)
	rep.MaxLoss = domain.WorstCaseLoss(curve, rep.TotalStake)
	rep.StartCapital = cfg.StartCapital
	if rep.StartCapital <= 0 {
		rep.StartCapital = rep.RequiredCapital
	}
	if rep.StartCapital <= 0 {
		return Report{}, domain.Validationf("the bets never put the bankroll at risk; nothing to simulate")
	}

	finals := runExperiments(ctx, cfg, n, plays, float64(rep.StartCapital))
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("simulate.Run: %w", err)
	}

	watch := cfg.WatchFraction * float64(rep.StartCapital)
	rep.WorstFinal = finals[0]
	var sum float64
	for _, f := range finals {
		sum += f
		if f <= watch {
			rep.BelowWatch++
		}
		rep.WorstFinal = min(rep.WorstFinal, f)
	}
	rep.MeanFinal = sum / float64(len(finals))

	slog.Debug("simulation complete",
		"required_capital", rep.RequiredCapital,
		"experiments", rep.Experiments,
		"below_watch", rep.BelowWatch,
	)
	return rep, nil
}

type play struct {
	lower, upper uint32
	kept         float64
	payout       float64
}

// runExperiments reparte los experimentos entre workers. Cada experimento usa
// su propio generador derivado de (Seed, índice), así el resultado no depende
// del orden de ejecución.
func runExperiments(ctx context.Context, cfg Config, n uint32, plays []play, start float64) []float64 {
	finals := make([]float64, cfg.Experiments)
	workCh := make(chan int, cfg.Experiments)
	for i := range cfg.Experiments {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for range min(cfg.Workers, cfg.Experiments) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if ctx.Err() != nil {
					return
				}
				rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
				finals[i] = experiment(rng, cfg.Rolls, n, plays, start)
			}
		}()
	}
	wg.Wait()
	return finals
}

// experiment juega rolls seguidos; las bets crecen o encogen con el bankroll.
func experiment(rng *rand.Rand, rolls int, n uint32, plays []play, start float64) float64 {
	capital := start
	for range rolls {
		factor := capital / start
		outcome := uint32(rng.IntN(int(n))) + 1
		for _, p := range plays {
			delta := p.kept
			if p.lower <= outcome && outcome <= p.upper {
				delta -= p.payout
			}
			capital += delta * factor
		}
	}
	return capital
}
