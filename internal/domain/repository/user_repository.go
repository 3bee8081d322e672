package repository

import (
	"context"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User.
// El email es único en todo el sistema (el login no pide empresa).
type UserRepository interface {
	// Create devuelve domain.ErrDuplicate si el email ya existe.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByEmpresa(ctx context.Context, empresaID string) ([]*entity.User, error)
}
