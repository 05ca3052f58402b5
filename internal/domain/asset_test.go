package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wax = Symbol{Code: "WAX", Precision: 8}

func TestAsset_String(t *testing.T) {
	assert.Equal(t, "1.50000000 WAX", NewAsset(150_000_000, wax).String())
	assert.Equal(t, "0.00000001 WAX", NewAsset(1, wax).String())
	assert.Equal(t, "8,WAX", wax.String())
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("1.5 WAX", wax)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), a.Amount)

	a, err = ParseAsset("0.00000001 WAX", wax)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Amount)
}

func TestParseAsset_Rejects(t *testing.T) {
	for _, s := range []string{
		"1.5",
		"1.5 EOS",
		"abc WAX",
		"0.000000001 WAX",
		"-1 WAX",
		"200000000000 WAX",
		"92233720368.54775808 WAX",
	} {
		_, err := ParseAsset(s, wax)
		assert.ErrorIs(t, err, ErrValidation, s)
	}
}

func TestParseAsset_MaxAmount(t *testing.T) {
	a, err := ParseAsset("92233720368.54775807 WAX", wax)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), a.Amount)
}

func TestParseSymbol(t *testing.T) {
	s, err := ParseSymbol("8,WAX")
	require.NoError(t, err)
	assert.Equal(t, wax, s)

	for _, bad := range []string{"WAX", "x,WAX", "8,", "-1,WAX", "19,WAX"} {
		_, err := ParseSymbol(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}
