package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/application/simulate"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console imprime informes legibles del estado del bankroll.
type Console struct {
	out io.Writer
}

// NewConsole crea un Console que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un Console para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintStatus imprime pool, rolls, inversores y pagos pendientes.
func (c *Console) PrintStatus(snap exchange.Snapshot) {
	asset := func(v int64) string { return domain.NewAsset(v, snap.Asset).String() }

	fmt.Fprintf(c.out, "\n=== BANKROLL [%s] ===\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.out, "  Capital:      %s\n", asset(snap.Pool.Capital))
	fmt.Fprintf(c.out, "  Reserved:     %s (worst case of locked rolls)\n", asset(snap.Reserved()))
	switch snap.ShareMode {
	case domain.ShareWeight:
		fmt.Fprintf(c.out, "  Shares:       %d weight\n", snap.ShareSupply)
	default:
		fmt.Fprintf(c.out, "  Shares:       %s\n", domain.NewAsset(snap.ShareSupply, snap.Claim))
	}
	fmt.Fprintf(c.out, "  Next roll id: %d\n", snap.Pool.CurrentRollID)
	if snap.Pool.Paused {
		fmt.Fprintln(c.out, "  !! PAUSED: no new rolls, bets or deposits")
	}

	fmt.Fprintf(c.out, "\n── ROLLS (%d) ──\n", len(snap.Rolls))
	if len(snap.Rolls) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("ID", "Creator", "N", "State", "Bets", "Stake", "Required", "MaxLoss", "Age")
		for _, r := range snap.Rolls {
			table.Append(
				fmt.Sprintf("%d", r.ID),
				fmt.Sprintf("%s/%d", r.Creator, r.CreatorID),
				fmt.Sprintf("%d", r.MaxResult),
				string(r.State),
				fmt.Sprintf("%d", r.BetCount),
				asset(r.TotalStake),
				asset(r.RequiredCapital),
				asset(r.MaxLoss),
				age(r.CreatedAt),
			)
		}
		table.Render()
	} else {
		fmt.Fprintln(c.out, "  (none)")
	}

	if snap.ShareMode == domain.ShareWeight {
		fmt.Fprintf(c.out, "\n── INVESTORS (%d) ──\n", len(snap.Investors))
		for _, inv := range snap.Investors {
			fmt.Fprintf(c.out, "  %-20s %12d  %6.2f%%\n", inv.Account, inv.Weight, share(inv.Weight, snap.ShareSupply))
		}
	}

	var owed int64
	for _, o := range snap.Outstanding {
		owed += o.Amount
	}
	fmt.Fprintf(c.out, "\n── OUTSTANDING PAYOUTS (%d bettors, %s) ──\n", len(snap.Outstanding), asset(owed))
	for _, o := range snap.Outstanding {
		fmt.Fprintf(c.out, "  %-20s %s\n", o.Bettor, asset(o.Amount))
	}
	if len(snap.Pending) > 0 {
		fmt.Fprintf(c.out, "  %d scheduled deliveries pending\n", len(snap.Pending))
	}
	fmt.Fprintln(c.out)
}

// PrintSimulation imprime el resultado de la comprobación Monte-Carlo.
func (c *Console) PrintSimulation(rep simulate.Report, sym domain.Symbol) {
	asset := func(v int64) string { return domain.NewAsset(v, sym).String() }

	fmt.Fprintf(c.out, "\n=== RISK SIMULATION (%d bets, results 1..%d) ===\n", rep.Bets, rep.MaxResult)
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Total stake", asset(rep.TotalStake))
	table.Append("Collected", asset(rep.Collected))
	table.Append("Required capital", asset(rep.RequiredCapital))
	table.Append("Worst-case loss", asset(rep.MaxLoss))
	table.Append("Start capital", asset(rep.StartCapital))
	table.Append("Mean final", fmt.Sprintf("%.0f", rep.MeanFinal))
	table.Append("Worst final", fmt.Sprintf("%.0f", rep.WorstFinal))
	table.Render()

	fmt.Fprintf(c.out, "\n  After %d rolls, %.2f%% of %d experiments ended below %.2fx the starting bankroll\n\n",
		rep.Rolls, rep.BelowWatchRatio()*100, rep.Experiments, rep.WatchFraction)
}

func share(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Truncate(time.Second).String()
}
