package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

var _ repository.SummaryRepository = (*SummaryRepo)(nil)

// SummaryRepo consultas read-only del resumen de documentos.
type SummaryRepo struct {
	q Querier
}

// NewSummaryRepository construye el adaptador.
func NewSummaryRepository(q Querier) *SummaryRepo {
	return &SummaryRepo{q: q}
}

// countBy ejecuta un GROUP BY sobre la columna dada (constante interna, nunca input de usuario).
func (r *SummaryRepo) countBy(ctx context.Context, column, empresaID string) (map[string]int, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) FROM documentos
		WHERE empresa_id = $1 AND %[1]s <> ''
		GROUP BY %[1]s`, column)
	rows, err := r.q.Query(ctx, query, empresaID)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *SummaryRepo) CountByEstado(ctx context.Context, empresaID string) (map[entity.Estado]int, error) {
	m, err := r.countBy(ctx, "estado", empresaID)
	if err != nil {
		return nil, err
	}
	out := make(map[entity.Estado]int, len(m))
	for k, v := range m {
		out[entity.Estado(k)] = v
	}
	return out, nil
}

func (r *SummaryRepo) CountByTipo(ctx context.Context, empresaID string) (map[string]int, error) {
	return r.countBy(ctx, "tipo_documento", empresaID)
}

func (r *SummaryRepo) CountBySIIEstado(ctx context.Context, empresaID string) (map[entity.SIIEstado]int, error) {
	m, err := r.countBy(ctx, "sii_estado", empresaID)
	if err != nil {
		return nil, err
	}
	out := make(map[entity.SIIEstado]int, len(m))
	for k, v := range m {
		out[entity.SIIEstado(k)] = v
	}
	return out, nil
}

func (r *SummaryRepo) TotalBetween(ctx context.Context, empresaID string, from, to time.Time) (entity.DocumentSummary, error) {
	query := `
		SELECT COALESCE(SUM(total), 0), COUNT(*) FROM documentos
		WHERE empresa_id = $1 AND fecha_emision BETWEEN $2 AND $3`
	sum := entity.DocumentSummary{TotalMes: decimal.Zero}
	if err := r.q.QueryRow(ctx, query, empresaID, from, to).Scan(&sum.TotalMes, &sum.CantMes); err != nil {
		return sum, fmt.Errorf("total mes: %w", err)
	}
	return sum, nil
}
