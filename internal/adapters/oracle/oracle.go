package oracle

// oracle.go: servicio de aleatoriedad commit-reveal.
//
//   - RequestRandom guarda sha256(le64(signing value)) como job abierto y marca
//     el valor como usado para siempre.
//   - SetRandom recibe la firma del signer, la verifica contra la clave
//     pública actual, deriva sha256(firma) y se la entrega al consumer del
//     llamante en la misma transacción. Si el consumer falla, el job sigue abierto.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/alejandrodnm/bankroll/internal/domain"
	"github.com/alejandrodnm/bankroll/internal/ports"
	"github.com/ethereum/go-ethereum/crypto"
)

// Oracle implementa ports.RandomnessOracle.
type Oracle struct {
	account domain.Account // cuenta propia: única autorizada a setrand/setpubkey
	admin   domain.Account // puede pausar
	store   ports.Store

	mu        sync.RWMutex
	consumers map[domain.Account]ports.RandomnessConsumer
}

var _ ports.RandomnessOracle = (*Oracle)(nil)

// New crea un Oracle.
func New(store ports.Store, account, admin domain.Account) *Oracle {
	return &Oracle{
		account:   account,
		admin:     admin,
		store:     store,
		consumers: make(map[domain.Account]ports.RandomnessConsumer),
	}
}

// Account devuelve la cuenta del oráculo.
func (o *Oracle) Account() domain.Account { return o.account }

// Register asocia el callback receiverand de un llamante.
func (o *Oracle) Register(caller domain.Account, c ports.RandomnessConsumer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumers[caller] = c
}

func (o *Oracle) consumer(caller domain.Account) ports.RandomnessConsumer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.consumers[caller]
}

// RequestRandom abre un job dentro de la transacción del llamante.
func (o *Oracle) RequestRandom(ctx context.Context, tx ports.Tx, caller domain.Account, assocID, signingValue uint64) error {
	cfg, err := tx.LoadOracleConfig(ctx)
	if err != nil {
		return fmt.Errorf("oracle.RequestRandom: %w", err)
	}
	if cfg.Paused {
		return domain.Statef("the randomness oracle is currently paused and does not accept new jobs")
	}
	if caller == "" {
		return domain.Unauthorizedf("caller is required")
	}
	if err := tx.MarkValueUsed(ctx, signingValue); err != nil {
		return err
	}

	job := domain.RandomJob{
		ID:           cfg.NextJobID(),
		Caller:       caller,
		AssocID:      assocID,
		SigningValue: signingValue,
		SigningHash:  domain.SigningHash(signingValue),
	}
	if err := tx.SaveOracleConfig(ctx, cfg); err != nil {
		return fmt.Errorf("oracle.RequestRandom: %w", err)
	}
	if err := tx.InsertJob(ctx, job); err != nil {
		return err
	}
	slog.Debug("oracle: job opened", "job_id", job.ID, "caller", caller, "assoc_id", assocID)
	return nil
}

// SetRandom entrega la firma de un job abierto.
func (o *Oracle) SetRandom(ctx context.Context, caller domain.Account, jobID uint64, sig []byte) error {
	if caller != o.account {
		return domain.Unauthorizedf("setrand requires the authority of %s", o.account)
	}
	return o.store.Atomic(ctx, func(tx ports.Tx) error {
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		cfg, err := tx.LoadOracleConfig(ctx)
		if err != nil {
			return fmt.Errorf("oracle.SetRandom: %w", err)
		}
		if err := Verify(cfg.PubKey, job.SigningHash, sig); err != nil {
			return err
		}

		c := o.consumer(job.Caller)
		if c == nil {
			return domain.Statef("caller %s has no randomness callback", job.Caller)
		}
		if err := tx.DeleteJob(ctx, job.ID); err != nil {
			return err
		}
		if err := c.ReceiveRandomness(ctx, tx, job.AssocID, domain.RandomHash(sig)); err != nil {
			return err
		}
		slog.Debug("oracle: job fulfilled", "job_id", job.ID, "caller", job.Caller, "assoc_id", job.AssocID)
		return nil
	})
}

// SetPubKey rota la clave pública. Prohibido mientras haya jobs abiertos.
func (o *Oracle) SetPubKey(ctx context.Context, caller domain.Account, pubKey []byte) error {
	if caller != o.account {
		return domain.Unauthorizedf("setpubkey requires the authority of %s", o.account)
	}
	if _, err := crypto.UnmarshalPubkey(pubKey); err != nil {
		return &domain.Error{Kind: domain.KindValidation, Message: "invalid secp256k1 public key", Cause: err}
	}
	return o.store.Atomic(ctx, func(tx ports.Tx) error {
		jobs, err := tx.OpenJobs(ctx)
		if err != nil {
			return fmt.Errorf("oracle.SetPubKey: %w", err)
		}
		if len(jobs) > 0 {
			return domain.Statef("cant change the key while %d jobs are open", len(jobs))
		}
		cfg, err := tx.LoadOracleConfig(ctx)
		if err != nil {
			return fmt.Errorf("oracle.SetPubKey: %w", err)
		}
		cfg.PubKey = bytes.Clone(pubKey)
		return tx.SaveOracleConfig(ctx, cfg)
	})
}

// SetPaused pausa o reanuda la aceptación de jobs nuevos.
func (o *Oracle) SetPaused(ctx context.Context, caller domain.Account, paused bool) error {
	if caller != o.admin {
		return domain.Unauthorizedf("setpaused requires the authority of %s", o.admin)
	}
	return o.store.Atomic(ctx, func(tx ports.Tx) error {
		cfg, err := tx.LoadOracleConfig(ctx)
		if err != nil {
			return fmt.Errorf("oracle.SetPaused: %w", err)
		}
		cfg.Paused = paused
		return tx.SaveOracleConfig(ctx, cfg)
	})
}

// OpenJobs devuelve los jobs pendientes de firma.
func (o *Oracle) OpenJobs(ctx context.Context) ([]domain.RandomJob, error) {
	var jobs []domain.RandomJob
	err := o.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		jobs, err = tx.OpenJobs(ctx)
		return err
	})
	return jobs, err
}

// Config devuelve el estado actual del oráculo.
func (o *Oracle) Config(ctx context.Context) (domain.OracleConfig, error) {
	var cfg domain.OracleConfig
	err := o.store.Atomic(ctx, func(tx ports.Tx) error {
		var err error
		cfg, err = tx.LoadOracleConfig(ctx)
		return err
	})
	return cfg, err
}

// Verify comprueba que sig (65 bytes R‖S‖V) firma hash con la clave pubKey.
// Exige S en la mitad baja: la firma gemela con S alto es igual de válida y
// daría otro hash aleatorio.
func Verify(pubKey []byte, hash [32]byte, sig []byte) error {
	if len(pubKey) == 0 {
		return domain.Statef("the oracle has no public key set")
	}
	if len(sig) != crypto.SignatureLength {
		return domain.Validationf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return domain.Validationf("signature is not canonical")
	}
	recovered, err := crypto.Ecrecover(hash[:], sig)
	if err != nil {
		return &domain.Error{Kind: domain.KindValidation, Message: "cannot recover signer", Cause: err}
	}
	if !bytes.Equal(recovered, pubKey) {
		return domain.Unauthorizedf("signature was not produced by the oracle key")
	}
	return nil
}
