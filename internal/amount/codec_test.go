package amount

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals uint8
		want     string
	}{
		{"whole", "2", 8, "200000000"},
		{"fraction", "1.5", 8, "150000000"},
		{"btc cent", "0.01", 8, "1000000"},
		{"leading dot", ".5", 6, "500000"},
		{"trailing dot", "3.", 6, "3000000"},
		{"empty", "", 8, "0"},
		{"whitespace", "  1.25 ", 2, "125"},
		{"zero decimals", "42", 0, "42"},
		{"truncates extra digits", "1.123456789", 6, "1123456"},
		{"truncates not rounds", "0.999", 2, "99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.value, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, v := range []string{"abc", "1.2.3", "1,5", "1e8", "0x10"} {
		_, err := Parse(v, 8)
		assert.ErrorIs(t, err, ErrInvalidAmount, v)
	}

	_, err := Parse("-1", 8)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		value    int64
		decimals uint8
		want     string
	}{
		{0, 8, "0"},
		{150000000, 8, "1.5"},
		{100000000, 8, "1"},
		{1000000, 8, "0.01"},
		{123456789, 8, "1.234567"},
		{5, 8, "0"},
		{98505550044, 6, "98505.550044"},
		{42, 0, "42"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(big.NewInt(tt.value), tt.decimals))
	}
	assert.Equal(t, "0", Format(nil, 8))
}

func TestRoundTrip(t *testing.T) {
	exact := []int64{0, 1_000_000, 150_000_000, 123_456_700, 99_999_900}
	for _, x := range exact {
		got, err := Parse(Format(big.NewInt(x), 8), 8)
		require.NoError(t, err)
		assert.Equal(t, x, got.Int64())
	}

	// Digits past the sixth fractional place are dropped for display.
	got, err := Parse(Format(big.NewInt(123456789), 8), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(123456700), got.Int64())
	assert.NotEqual(t, int64(123456789), got.Int64())
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive("0.01", 8))
	assert.False(t, IsPositive("0", 8))
	assert.False(t, IsPositive("", 8))
	assert.False(t, IsPositive("abc", 8))
	assert.False(t, IsPositive("0.0000001", 6))
}
