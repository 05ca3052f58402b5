package domain

import "time"

// Investor es el peso de un inversor en modo weight.
type Investor struct {
	Account Account
	Weight  int64
}

// OutstandingPayout son las ganancias aún no cobradas de un bettor.
type OutstandingPayout struct {
	Bettor Account
	Amount int64
}

// DeliveryStatus es el estado de una entrega programada.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	// DeliveryFailedStatus: se agotaron los intentos; el saldo sigue
	// reclamable con payoutBet.
	DeliveryFailedStatus DeliveryStatus = "FAILED"
)

// Delivery es el pago automático de una bet ganadora, programado en la
// liquidación y ejecutado fuera de ella. ID único por bet para que dos
// entregas del mismo roll no colisionen.
type Delivery struct {
	ID        string
	RollID    uint64
	BetID     uint64
	Bettor    Account
	Amount    int64
	Status    DeliveryStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
