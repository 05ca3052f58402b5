package domain

// RandomJob es un compromiso abierto en el oráculo: el hash del signing
// value espera la firma del signer.
type RandomJob struct {
	ID           uint64
	Caller       Account
	AssocID      uint64 // el roll id del llamante
	SigningValue uint64
	SigningHash  [32]byte
}

// OracleConfig es el singleton del oráculo.
type OracleConfig struct {
	PubKey       []byte // secp256k1 sin comprimir (65 bytes)
	Paused       bool
	CurrentJobID uint64
}

// NextJobID reserva el siguiente id de job.
func (c *OracleConfig) NextJobID() uint64 {
	id := c.CurrentJobID
	c.CurrentJobID++
	return id
}
