package httpapi

import (
	"time"

	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/domain"
)

type rollView struct {
	ID              uint64     `json:"id"`
	Creator         string     `json:"creator"`
	CreatorID       uint64     `json:"creator_id"`
	MaxResult       uint32     `json:"max_result"`
	RakeRecipient   string     `json:"rake_recipient"`
	State           string     `json:"state"`
	Bets            int        `json:"bets"`
	TotalStake      string     `json:"total_stake"`
	RequiredCapital string     `json:"required_capital,omitempty"`
	MaxLoss         string     `json:"max_loss,omitempty"`
	SigningValue    uint64     `json:"signing_value,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
}

func toRollView(r domain.Roll, sym domain.Symbol) rollView {
	v := rollView{
		ID:            r.ID,
		Creator:       string(r.Creator),
		CreatorID:     r.CreatorID,
		MaxResult:     r.MaxResult,
		RakeRecipient: string(r.RakeRecipient),
		State:         string(r.State),
		Bets:          r.BetCount,
		TotalStake:    domain.NewAsset(r.TotalStake, sym).String(),
		SigningValue:  r.SigningValue,
		CreatedAt:     r.CreatedAt,
		LockedAt:      r.LockedAt,
	}
	if r.Locked() {
		v.RequiredCapital = domain.NewAsset(r.RequiredCapital, sym).String()
		v.MaxLoss = domain.NewAsset(r.MaxLoss, sym).String()
	}
	return v
}

type jobView struct {
	ID           uint64 `json:"id"`
	Caller       string `json:"caller"`
	AssocID      uint64 `json:"assoc_id"`
	SigningValue uint64 `json:"signing_value"`
	SigningHash  string `json:"signing_hash"`
}

type statusView struct {
	Capital     string            `json:"capital"`
	Reserved    string            `json:"reserved"`
	ShareMode   string            `json:"share_mode"`
	ShareSupply int64             `json:"share_supply"`
	Paused      bool              `json:"paused"`
	NextRollID  uint64            `json:"next_roll_id"`
	Rolls       []rollView        `json:"rolls"`
	Investors   map[string]int64  `json:"investors,omitempty"`
	Outstanding map[string]string `json:"outstanding"`
	Pending     int               `json:"pending_deliveries"`
}

func toStatusView(s exchange.Snapshot) statusView {
	v := statusView{
		Capital:     domain.NewAsset(s.Pool.Capital, s.Asset).String(),
		Reserved:    domain.NewAsset(s.Reserved(), s.Asset).String(),
		ShareMode:   string(s.ShareMode),
		ShareSupply: s.ShareSupply,
		Paused:      s.Pool.Paused,
		NextRollID:  s.Pool.CurrentRollID,
		Rolls:       make([]rollView, 0, len(s.Rolls)),
		Outstanding: make(map[string]string, len(s.Outstanding)),
		Pending:     len(s.Pending),
	}
	for _, r := range s.Rolls {
		v.Rolls = append(v.Rolls, toRollView(r, s.Asset))
	}
	if len(s.Investors) > 0 {
		v.Investors = make(map[string]int64, len(s.Investors))
		for _, inv := range s.Investors {
			v.Investors[string(inv.Account)] = inv.Weight
		}
	}
	for _, o := range s.Outstanding {
		v.Outstanding[string(o.Bettor)] = domain.NewAsset(o.Amount, s.Asset).String()
	}
	return v
}
