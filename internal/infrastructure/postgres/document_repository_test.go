package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

func TestListQuery_SinFiltros(t *testing.T) {
	q, args := listQuery("emp-1", entity.DocumentFilter{})
	assert.Contains(t, q, "WHERE empresa_id = $1 ORDER BY creado_en DESC, id DESC")
	assert.NotContains(t, q, "LIMIT")
	assert.Equal(t, []any{"emp-1"}, args)
}

func TestListQuery_TodosLosFiltros(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	q, args := listQuery("emp-1", entity.DocumentFilter{
		Search:     "sur",
		DateFrom:   &from,
		DateTo:     &to,
		TipoPrefix: "factura_",
		Estados:    []entity.Estado{entity.EstadoPendiente, entity.EstadoProcesando},
		Limit:      500,
	})

	assert.Contains(t, q, "folio ILIKE $2 OR rut_proveedor ILIKE $2")
	assert.Contains(t, q, "fecha_emision >= $3")
	assert.Contains(t, q, "fecha_emision <= $4")
	assert.Contains(t, q, "tipo_documento LIKE $5")
	assert.Contains(t, q, "estado = ANY($6)")
	assert.Contains(t, q, "LIMIT $7")
	assert.Equal(t, []any{"emp-1", "%sur%", from, to, "factura_%", []string{"pendiente", "procesando"}, 500}, args)
}

func TestListQuery_TipoExacto(t *testing.T) {
	q, args := listQuery("emp-1", entity.DocumentFilter{TipoExact: entity.TipoNotaCredito, Offset: 20})
	assert.Contains(t, q, "tipo_documento = $2")
	assert.Contains(t, q, "OFFSET $3")
	assert.Equal(t, []any{"emp-1", entity.TipoNotaCredito, 20}, args)
}
