package oracle

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/time/rate"
)

// SignerConfig contiene la configuración del signer.
type SignerConfig struct {
	PollInterval time.Duration
	RatePerSec   float64 // firmas por segundo
	Burst        int
}

// KeySigner es el proceso off-line que firma los jobs abiertos del oráculo
// con la clave privada cuya pública está registrada en él.
type KeySigner struct {
	cfg     SignerConfig
	oracle  *Oracle
	key     *ecdsa.PrivateKey
	limiter *rate.Limiter
}

// NewKeySigner crea un signer a partir de una clave privada en hex.
func NewKeySigner(cfg SignerConfig, o *Oracle, privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("oracle.NewKeySigner: parse private key: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &KeySigner{
		cfg:     cfg,
		oracle:  o,
		key:     key,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}, nil
}

// PublicKey devuelve la clave pública sin comprimir (65 bytes) a registrar
// con SetPubKey.
func (s *KeySigner) PublicKey() []byte {
	return crypto.FromECDSAPub(&s.key.PublicKey)
}

// Sign firma el hash de un job.
func (s *KeySigner) Sign(job domain.RandomJob) ([]byte, error) {
	sig, err := crypto.Sign(job.SigningHash[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("oracle.Sign: job %d: %w", job.ID, err)
	}
	return sig, nil
}

// Run firma jobs cada PollInterval hasta que el contexto se cancele.
func (s *KeySigner) Run(ctx context.Context) error {
	slog.Info("signer starting", "interval", s.cfg.PollInterval, "rate", s.cfg.RatePerSec)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("signer stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SignPending(ctx); err != nil {
				slog.Error("signer cycle failed", "err", err)
			}
		}
	}
}

// SignPending firma todos los jobs abiertos y devuelve cuántos se entregaron.
// Un job que falla se registra y se reintenta en el siguiente ciclo.
func (s *KeySigner) SignPending(ctx context.Context) (int, error) {
	jobs, err := s.oracle.OpenJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("oracle.SignPending: list jobs: %w", err)
	}

	delivered := 0
	for _, job := range jobs {
		if err := s.limiter.Wait(ctx); err != nil {
			return delivered, fmt.Errorf("rate limiter: %w", err)
		}
		sig, err := s.Sign(job)
		if err != nil {
			slog.Warn("signer: sign failed", "job_id", job.ID, "err", err)
			continue
		}
		if err := s.oracle.SetRandom(ctx, s.oracle.Account(), job.ID, sig); err != nil {
			slog.Warn("signer: setrand rejected", "job_id", job.ID, "assoc_id", job.AssocID, "err", err)
			continue
		}
		delivered++
	}
	if len(jobs) > 0 {
		slog.Debug("signer cycle complete", "open", len(jobs), "delivered", delivered)
	}
	return delivered, nil
}
