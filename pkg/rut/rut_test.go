package rut_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

func TestValidate_RUTsValidos(t *testing.T) {
	for _, in := range []string{
		"12345678-5",
		"12.345.678-5",
		"123456785",
		" 12.345.678 - 5 ",
		"11111111-1",
		"1234567-4",
		"10000013-K",
		"10000013-k",
	} {
		assert.NoError(t, rut.Validate(in), "RUT %q debe ser válido", in)
	}
}

func TestValidate_RUTsInvalidos(t *testing.T) {
	cases := map[string]error{
		"":             rut.ErrEmpty,
		"12345678-4":   rut.ErrCheckDig,
		"12.345.678-K": rut.ErrCheckDig,
		"1234-5":       rut.ErrFormat,
		"123456789012": rut.ErrFormat,
		"12a45678-5":   rut.ErrFormat,
		"12345678-X":   rut.ErrFormat,
	}
	for in, want := range cases {
		err := rut.Validate(in)
		require.Error(t, err, "RUT %q debe ser rechazado", in)
		assert.ErrorIs(t, err, want, "RUT %q", in)
	}
}

func TestComputeCheckDigit(t *testing.T) {
	dv, err := rut.ComputeCheckDigit("12345678")
	require.NoError(t, err)
	assert.Equal(t, byte('5'), dv)

	dv, err = rut.ComputeCheckDigit("10000013")
	require.NoError(t, err)
	assert.Equal(t, byte('K'), dv)

	_, err = rut.ComputeCheckDigit("")
	assert.ErrorIs(t, err, rut.ErrEmpty)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", rut.Format("123456785"))
	assert.Equal(t, "1.234.567-4", rut.Format("1234567-4"))
	assert.Equal(t, "76.333.222-1", rut.Format("76333222-1"))
	assert.Equal(t, "K", rut.Format("k"))
}

func TestCanonical(t *testing.T) {
	c, err := rut.Canonical("12.345.678-5")
	require.NoError(t, err)
	assert.Equal(t, "12345678-5", c)

	c, err = rut.Canonical("01.234.567-4")
	require.NoError(t, err)
	assert.Equal(t, "1234567-4", c)

	_, err = rut.Canonical("x")
	assert.Error(t, err)

	_, err = rut.Canonical("77.444.555-3")
	assert.ErrorIs(t, err, rut.ErrCheckDig)
}
