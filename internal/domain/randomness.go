package domain

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/holiman/uint256"
)

const (
	// Las primeras seedBitBets bets aportan un bit cada una (el bit alto de su semilla).
	seedBitBets = 32
	// Bits altos del valor final reservados para el id del roll.
	rollIDBits = 16
)

// SigningValue deriva el valor a firmar por el oráculo a partir de las
// semillas de las bets, en orden de registro, y del id del roll.
//
//  1. La bet i (i < 32) coloca el bit alto de su semilla en el bit 63−i.
//     Esos bits quedan fijados por las primeras bets: el último en llegar no
//     puede elegirlos todos.
//  2. El XOR de todas las semillas, desplazado a la derecha tantas posiciones
//     como bets aportaron bit, se suma en los bits bajos restantes.
//  3. El valor se desplaza 16 bits a la derecha y los 16 bits bajos del id del
//     roll ocupan los bits altos, para que dos rolls con las mismas semillas
//     no colisionen.
//
// Determinista: mismas semillas en el mismo orden y mismo roll → mismo valor.
func SigningValue(seeds []uint64, rollID uint64) uint64 {
	var value, mixed uint64
	contributing := min(len(seeds), seedBitBets)
	for i, seed := range seeds {
		if i < seedBitBets {
			value |= (seed >> 63) << (63 - i)
		}
		mixed ^= seed
	}
	value += mixed >> contributing
	return rollID<<(64-rollIDBits) | value>>rollIDBits
}

// SigningHash es el hash que el oráculo guarda y el firmante firma:
// sha256 de los 8 bytes little-endian del valor.
func SigningHash(value uint64) [32]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return sha256.Sum256(buf[:])
}

// RandomHash deriva el hash aleatorio final a partir de la firma: sha256(sig).
func RandomHash(sig []byte) [32]byte {
	return sha256.Sum256(sig)
}

// OutcomeFromHash reduce los primeros 128 bits del hash (big-endian) a un
// resultado en [1, n].
func OutcomeFromHash(h [32]byte, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	x := new(uint256.Int).SetBytes(h[:16])
	x.Mod(x, uint256.NewInt(uint64(n)))
	return uint32(x.Uint64()) + 1
}
