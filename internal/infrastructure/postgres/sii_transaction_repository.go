package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

var _ repository.SIITransactionRepository = (*SIITransactionRepo)(nil)

// SIITransactionRepo guarda la traza de cada llamada al SII.
type SIITransactionRepo struct {
	q Querier
}

// NewSIITransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSIITransactionRepository(q Querier) *SIITransactionRepo {
	return &SIITransactionRepo{q: q}
}

func (r *SIITransactionRepo) Create(ctx context.Context, t *entity.SIITransaction) error {
	query := `
		INSERT INTO sii_transacciones (empresa_id, documento_id, endpoint, track_id, request_payload,
			response_payload, estado, ok, status_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		t.EmpresaID, t.DocumentoID, t.Endpoint, t.TrackID, jsonOrNull(t.RequestPayload),
		jsonOrNull(t.ResponsePayload), t.Estado, t.OK, t.StatusCode,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sii_transaccion: %w", err)
	}
	return nil
}

// jsonOrNull evita mandar un JSONB vacío (inválido) cuando no hay payload.
func jsonOrNull(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
