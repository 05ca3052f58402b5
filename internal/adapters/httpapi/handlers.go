package httpapi

import (
	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) announceRoll(c *fiber.Ctx) error {
	var body struct {
		CreatorID     uint64 `json:"creator_id"`
		MaxResult     uint32 `json:"max_result"`
		RakeRecipient string `json:"rake_recipient"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	roll, err := s.ex.AnnounceRoll(c.UserContext(), caller(c), body.CreatorID, body.MaxResult, domain.Account(body.RakeRecipient))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toRollView(roll, s.ex.Config().Asset))
}

func (s *Server) announceBet(c *fiber.Ctx) error {
	creatorID, err := pathUint(c, "creator_id")
	if err != nil {
		return err
	}
	var body struct {
		Bettor     string `json:"bettor"`
		Stake      string `json:"stake"`
		Lower      uint32 `json:"lower"`
		Upper      uint32 `json:"upper"`
		Multiplier uint32 `json:"multiplier"`
		Seed       uint64 `json:"seed"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	stake, err := domain.ParseAsset(body.Stake, s.ex.Config().Asset)
	if err != nil {
		return err
	}
	bet, err := s.ex.AnnounceBet(c.UserContext(), caller(c), creatorID, exchange.BetRequest{
		Bettor:     domain.Account(body.Bettor),
		Stake:      stake.Amount,
		Lower:      body.Lower,
		Upper:      body.Upper,
		Multiplier: body.Multiplier,
		Seed:       body.Seed,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      bet.ID,
		"roll_id": bet.RollID,
		"bettor":  bet.Bettor,
		"stake":   stake.String(),
		"payout":  domain.NewAsset(bet.Payout(), stake.Symbol).String(),
	})
}

// transfer mueve fondos del llamante; si el destino es el bankroll, el memo
// decide la operación (deposit, startroll <id>, withdraw).
func (s *Server) transfer(c *fiber.Ctx) error {
	var body struct {
		To       string `json:"to"`
		Quantity string `json:"quantity"`
		Memo     string `json:"memo"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	amount, err := s.parseQuantity(body.Quantity)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	err = s.store.Atomic(ctx, func(tx ports.Tx) error {
		return s.ledger.Transfer(ctx, tx, caller(c), domain.Account(body.To), amount, body.Memo)
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"from": caller(c), "to": body.To, "quantity": amount.String(), "memo": body.Memo})
}

// parseQuantity acepta el activo de liquidación o el claim-token.
func (s *Server) parseQuantity(q string) (domain.Asset, error) {
	cfg := s.ex.Config()
	a, err := domain.ParseAsset(q, cfg.Asset)
	if err == nil || cfg.Claim.Code == "" {
		return a, err
	}
	if claim, cerr := domain.ParseAsset(q, cfg.Claim); cerr == nil {
		return claim, nil
	}
	return domain.Asset{}, err
}

func (s *Server) payoutBet(c *fiber.Ctx) error {
	var body struct {
		Bettor   string `json:"bettor"`
		Quantity string `json:"quantity"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	amount, err := domain.ParseAsset(body.Quantity, s.ex.Config().Asset)
	if err != nil {
		return err
	}
	bettor := domain.Account(body.Bettor)
	if bettor == "" {
		bettor = caller(c)
	}
	if err := s.ex.PayoutBet(c.UserContext(), caller(c), bettor, amount); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"bettor": bettor, "paid": amount.String()})
}

func (s *Server) withdraw(c *fiber.Ctx) error {
	var body struct {
		Weight int64 `json:"weight"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	got, err := s.ex.Withdraw(c.UserContext(), caller(c), body.Weight)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"investor": caller(c), "weight": body.Weight, "amount": got.String()})
}

func (s *Server) setPaused(c *fiber.Ctx) error {
	var body struct {
		Target string `json:"target"` // "bankroll" (default) u "oracle"
		Paused bool   `json:"paused"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	var err error
	switch body.Target {
	case "", "bankroll":
		err = s.ex.SetPaused(c.UserContext(), caller(c), body.Paused)
	case "oracle":
		err = s.oracle.SetPaused(c.UserContext(), caller(c), body.Paused)
	default:
		err = domain.Validationf("unknown pause target %q", body.Target)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"paused": body.Paused})
}

func (s *Server) setRandom(c *fiber.Ctx) error {
	jobID, err := pathUint(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Signature string `json:"signature"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	sig, err := hexutil.Decode(body.Signature)
	if err != nil {
		return domain.Validationf("signature must be 0x-prefixed hex: %v", err)
	}
	if err := s.oracle.SetRandom(c.UserContext(), caller(c), jobID, sig); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job_id": jobID, "delivered": true})
}

func (s *Server) setPubKey(c *fiber.Ctx) error {
	var body struct {
		PubKey string `json:"pubkey"`
	}
	if err := parseBody(c, &body); err != nil {
		return err
	}
	pub, err := hexutil.Decode(body.PubKey)
	if err != nil {
		return domain.Validationf("pubkey must be 0x-prefixed hex: %v", err)
	}
	if err := s.oracle.SetPubKey(c.UserContext(), caller(c), pub); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"pubkey": body.PubKey})
}

func (s *Server) status(c *fiber.Ctx) error {
	snap, err := s.ex.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toStatusView(snap))
}

func (s *Server) stake(c *fiber.Ctx) error {
	st, err := s.ex.StakeOf(c.UserContext(), domain.Account(c.Params("account")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"investor": st.Investor,
		"shares":   st.Shares,
		"supply":   st.Supply,
		"value":    st.Value.String(),
	})
}

func (s *Server) outstanding(c *fiber.Ctx) error {
	owed, err := s.ex.Outstanding(c.UserContext(), domain.Account(c.Params("account")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"bettor": c.Params("account"), "outstanding": owed.String()})
}

func (s *Server) openJobs(c *fiber.Ctx) error {
	jobs, err := s.oracle.OpenJobs(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobView{
			ID:           j.ID,
			Caller:       string(j.Caller),
			AssocID:      j.AssocID,
			SigningValue: j.SigningValue,
			SigningHash:  hexutil.Encode(j.SigningHash[:]),
		})
	}
	return c.JSON(out)
}
