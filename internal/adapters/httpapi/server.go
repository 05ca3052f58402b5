package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/bankroll/internal/adapters/oracle"
	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/gofiber/fiber/v2"
)

// HeaderAccount identifica la cuenta que firma la operación. La autenticación
// real de la cuenta queda fuera de este servicio (gateway delante).
const HeaderAccount = "X-Account"

// Server expone las operaciones del exchange y del oráculo por HTTP.
type Server struct {
	app    *fiber.App
	ex     *exchange.Exchange
	oracle *oracle.Oracle
	ledger ports.AssetLedger
	store  ports.Store
}

// New crea el servidor y registra las rutas.
func New(ex *exchange.Exchange, o *oracle.Oracle, ledger ports.AssetLedger, store ports.Store) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		ex:     ex,
		oracle: o,
		ledger: ledger,
		store:  store,
	}

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/v1")
	v1.Get("/status", s.status)
	v1.Get("/investors/:account/stake", s.stake)
	v1.Get("/bettors/:account/outstanding", s.outstanding)
	v1.Get("/oracle/jobs", s.openJobs)

	auth := requireAccount()
	v1.Post("/rolls", auth, s.announceRoll)
	v1.Post("/rolls/:creator_id/bets", auth, s.announceBet)
	v1.Post("/transfers", auth, s.transfer)
	v1.Post("/payouts", auth, s.payoutBet)
	v1.Post("/withdrawals", auth, s.withdraw)
	v1.Post("/pause", auth, s.setPaused)
	v1.Post("/oracle/jobs/:id/signature", auth, s.setRandom)
	v1.Post("/oracle/pubkey", auth, s.setPubKey)

	return s
}

// App devuelve la aplicación fiber (para tests).
func (s *Server) App() *fiber.App { return s.app }

// Listen sirve en addr hasta que ctx se cancele.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()

	slog.Info("http server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		slog.Info("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func requireAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		acct := c.Get(HeaderAccount)
		if acct == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing " + HeaderAccount + " header"})
		}
		c.Locals("account", domain.Account(acct))
		return c.Next()
	}
}

func caller(c *fiber.Ctx) domain.Account {
	acct, _ := c.Locals("account").(domain.Account)
	return acct
}

func pathUint(c *fiber.Ctx, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, domain.Validationf("invalid %s %q", name, c.Params(name))
	}
	return v, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}

// errorHandler traduce el Kind del error de dominio a un código HTTP.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	code := fiber.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		code = fiber.StatusBadRequest
	case domain.KindAuthorization:
		code = fiber.StatusForbidden
	case domain.KindCapacity, domain.KindState:
		code = fiber.StatusConflict
	case domain.KindNotFound:
		code = fiber.StatusNotFound
	case domain.KindDelivery:
		code = fiber.StatusBadGateway
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(code).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  domain.KindOf(err),
	})
}
