package sii_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsii "github.com/jhoicas/sgidt-documentos/internal/application/sii"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	infrasii "github.com/jhoicas/sgidt-documentos/internal/infrastructure/sii"
)

func valid() appsii.DTERequest {
	return appsii.DTERequest{EmisorRut: "77.444.555-2", ReceptorRut: "76.333.222-5", TipoDTE: 33, Folio: 10, MontoTotal: 11900, FechaEmision: "2024-05-02"}
}

func TestMock_Rechazos(t *testing.T) {
	m := infrasii.NewMockProvider().WithRand(func() float64 { return 0.5 })
	ctx := context.Background()

	req := valid()
	req.ReceptorRut = "1"
	res, err := m.ValidarDTE(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Glosa, "RUT del receptor")

	req = valid()
	req.MontoTotal = 0
	res, _ = m.ValidarDTE(ctx, req)
	assert.False(t, res.OK)
	assert.Contains(t, res.Glosa, "monto total")

	m.WithRand(func() float64 { return 0.05 })
	res, _ = m.ValidarDTE(ctx, valid())
	assert.False(t, res.OK)
}

func TestMock_CicloDeVida(t *testing.T) {
	m := infrasii.NewMockProvider().WithRand(func() float64 { return 0.5 })
	ctx := context.Background()

	res, err := m.ValidarDTE(ctx, valid())
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Len(t, res.TrackID, 10)

	for i := 0; i < 2; i++ {
		st, err := m.EstadoDTE(ctx, res.TrackID, valid())
		require.NoError(t, err)
		assert.Equal(t, entity.SIIEnProceso, st.Estado, "consulta %d", i+1)
	}
	st, _ := m.EstadoDTE(ctx, res.TrackID, valid())
	assert.Equal(t, entity.SIIAceptado, st.Estado)

	st, _ = m.EstadoDTE(ctx, "no-existe", valid())
	assert.Equal(t, entity.SIINoEncontrado, st.Estado)
}

func TestMock_Contribuyente(t *testing.T) {
	m := infrasii.NewMockProvider()
	c, err := m.ConsultaContribuyente(context.Background(), "77.444.555-2")
	require.NoError(t, err)
	assert.Equal(t, "Importadora Rápida S.A.", c.RazonSocial)

	_, err = m.ConsultaContribuyente(context.Background(), "11.111.111-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
