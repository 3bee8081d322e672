package repository

import (
	"context"
	"time"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para documentos.
// Todas las lecturas se acotan a la empresa del usuario.
type DocumentRepository interface {
	// Create persiste el documento; devuelve domain.ErrDuplicate si el hash ya existe en la empresa.
	Create(ctx context.Context, doc *entity.Document) error
	// GetByID devuelve nil, nil si no existe o pertenece a otra empresa.
	GetByID(ctx context.Context, empresaID string, id int64) (*entity.Document, error)
	// GetMany devuelve los documentos existentes entre ids (los faltantes se omiten).
	GetMany(ctx context.Context, empresaID string, ids []int64) ([]*entity.Document, error)
	// List ordena por creado_en descendente.
	List(ctx context.Context, empresaID string, f entity.DocumentFilter) ([]*entity.Document, error)
	// UpdateExtraction actualiza estado y metadatos extraídos.
	UpdateExtraction(ctx context.Context, doc *entity.Document) error
	// UpdateSII actualiza los campos de validación SII.
	UpdateSII(ctx context.Context, doc *entity.Document) error
	// Delete elimina el documento; no falla si ya no existe.
	Delete(ctx context.Context, empresaID string, id int64) error
	// ListByEstado documentos de cualquier empresa en el estado dado (procesador).
	ListByEstado(ctx context.Context, estado entity.Estado, limit int) ([]*entity.Document, error)
}

// SummaryRepository consultas read-only para el dashboard de documentos.
type SummaryRepository interface {
	CountByEstado(ctx context.Context, empresaID string) (map[entity.Estado]int, error)
	CountByTipo(ctx context.Context, empresaID string) (map[string]int, error)
	CountBySIIEstado(ctx context.Context, empresaID string) (map[entity.SIIEstado]int, error)
	// TotalBetween suma el total y cuenta los documentos emitidos en [from, to].
	TotalBetween(ctx context.Context, empresaID string, from, to time.Time) (entity.DocumentSummary, error)
}

// SIITransactionRepository traza de llamadas al SII.
type SIITransactionRepository interface {
	Create(ctx context.Context, tx *entity.SIITransaction) error
}
