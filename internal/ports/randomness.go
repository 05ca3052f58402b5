package ports

import (
	"context"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// RandomnessOracle acepta compromisos. La respuesta llega más tarde, en otra
// transacción, a través del RandomnessConsumer del llamante.
type RandomnessOracle interface {
	RequestRandom(ctx context.Context, tx Tx, caller domain.Account, assocID, signingValue uint64) error
}

// RandomnessConsumer recibe el hash aleatorio ya verificado.
type RandomnessConsumer interface {
	ReceiveRandomness(ctx context.Context, tx Tx, assocID uint64, randomHash [32]byte) error
}
