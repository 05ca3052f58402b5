package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Account identifica una cuenta del host (bettor, inversor, creador de roll...).
type Account string

// Symbol describe un activo con escala decimal fija: Precision decimales,
// las cantidades se guardan en la unidad mínima.
type Symbol struct {
	Code      string
	Precision int32
}

// String devuelve "8,WAX".
func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// ParseSymbol interpreta "8,WAX".
func ParseSymbol(s string) (Symbol, error) {
	prec, code, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok || code == "" {
		return Symbol{}, Validationf("symbol %q: expected \"<precision>,<code>\"", s)
	}
	p, err := strconv.ParseInt(prec, 10, 32)
	if err != nil || p < 0 || p > 18 {
		return Symbol{}, Validationf("symbol %q: precision must be 0..18", s)
	}
	return Symbol{Code: code, Precision: int32(p)}, nil
}

// Asset es una cantidad entera en la unidad mínima de Symbol.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// NewAsset crea un Asset.
func NewAsset(amount int64, sym Symbol) Asset {
	return Asset{Amount: amount, Symbol: sym}
}

// Decimal devuelve la cantidad como decimal con su escala.
func (a Asset) Decimal() decimal.Decimal {
	return decimal.New(a.Amount, -a.Symbol.Precision)
}

// String formatea como "1.50000000 WAX".
func (a Asset) String() string {
	return a.Decimal().StringFixed(a.Symbol.Precision) + " " + a.Symbol.Code
}

// IsValid: cantidad no negativa y símbolo con código.
func (a Asset) IsValid() bool {
	return a.Amount >= 0 && a.Symbol.Code != "" && a.Symbol.Precision >= 0
}

// ParseAsset interpreta "1.5 WAX" con la precisión de sym. Rechaza más
// decimales de los que admite el símbolo y códigos distintos.
func ParseAsset(s string, sym Symbol) (Asset, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Asset{}, Validationf("asset %q: expected \"<amount> <symbol>\"", s)
	}
	if fields[1] != sym.Code {
		return Asset{}, Validationf("asset %q: symbol must be %s", s, sym.Code)
	}
	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Asset{}, &Error{Kind: KindValidation, Message: fmt.Sprintf("asset %q: bad amount", s), Cause: err}
	}
	scaled := d.Shift(sym.Precision)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Asset{}, Validationf("asset %q: more than %d decimals", s, sym.Precision)
	}
	if scaled.IsNegative() {
		return Asset{}, Validationf("asset %q: amount must be non-negative", s)
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return Asset{}, Validationf("asset %q: amount out of range", s)
	}
	return Asset{Amount: scaled.IntPart(), Symbol: sym}, nil
}
