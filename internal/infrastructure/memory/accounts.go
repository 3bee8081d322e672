package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

// Accounts empresas y usuarios en memoria.
type Accounts struct {
	mu        sync.Mutex
	users     map[string]entity.User
	companies map[string]entity.Company
}

// NewAccounts crea un almacén de cuentas vacío.
func NewAccounts() *Accounts {
	return &Accounts{users: make(map[string]entity.User), companies: make(map[string]entity.Company)}
}

var (
	_ repository.UserRepository    = userRepo{}
	_ repository.CompanyRepository = companyRepo{}
)

// Users repositorio de usuarios.
func (a *Accounts) Users() repository.UserRepository { return userRepo{a} }

// Companies repositorio de empresas.
func (a *Accounts) Companies() repository.CompanyRepository { return companyRepo{a} }

type userRepo struct{ a *Accounts }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	for _, x := range r.a.users {
		if x.Email == u.Email {
			return domain.ErrDuplicate
		}
	}
	r.a.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	u, ok := r.a.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	for _, u := range r.a.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) ListByEmpresa(_ context.Context, empresaID string) ([]*entity.User, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	var out []*entity.User
	for _, u := range r.a.users {
		if u.EmpresaID == empresaID {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type companyRepo struct{ a *Accounts }

func (r companyRepo) Create(_ context.Context, c *entity.Company) error {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	for _, x := range r.a.companies {
		if x.Rut == c.Rut {
			return domain.ErrDuplicate
		}
	}
	r.a.companies[c.ID] = *c
	return nil
}

func (r companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	c, ok := r.a.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r companyRepo) GetByRut(_ context.Context, rut string) (*entity.Company, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	for _, c := range r.a.companies {
		if c.Rut == rut {
			return &c, nil
		}
	}
	return nil, nil
}
