package ports

import (
	"context"

	"github.com/alejandrodnm/bankroll/internal/domain"
)

// AssetLedger ejecuta transferencias de activos. Todas las llamadas se hacen
// dentro de la transacción del llamante: si la operación falla después, la
// transferencia también se deshace.
type AssetLedger interface {
	// Transfer mueve amount de from a to y, si to tiene un TransferHandler
	// registrado, le notifica dentro de la misma transacción.
	Transfer(ctx context.Context, tx Tx, from, to domain.Account, amount domain.Asset, memo string) error

	// Issue crea claim-tokens nuevos a favor de to.
	Issue(ctx context.Context, tx Tx, to domain.Account, amount domain.Asset, memo string) error

	// Retire destruye claim-tokens en poder de holder.
	Retire(ctx context.Context, tx Tx, holder domain.Account, amount domain.Asset, memo string) error

	// Supply devuelve el supply actual de un símbolo.
	Supply(ctx context.Context, tx Tx, sym domain.Symbol) (int64, error)
}

// TransferHandler recibe las transferencias entrantes a una cuenta.
// Si devuelve error, la transferencia se rechaza.
type TransferHandler interface {
	OnTransfer(ctx context.Context, tx Tx, from domain.Account, amount domain.Asset, memo string) error
}
