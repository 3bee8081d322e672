package repository

import (
	"context"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para empresas.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	// GetByID y GetByRut devuelven nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetByRut(ctx context.Context, rut string) (*entity.Company, error)
}
