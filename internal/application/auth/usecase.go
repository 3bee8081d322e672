package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
	"github.com/jhoicas/sgidt-documentos/pkg/formcheck"
	"github.com/jhoicas/sgidt-documentos/pkg/jwt"
	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

// MinPasswordScore fuerza mínima aceptada (0..4).
const MinPasswordScore = 2

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// UseCase registro de empresas, login y usuarios.
type UseCase struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	jwtCfg    JWTConfig
	log       zerolog.Logger
	cost      int
}

// NewUseCase construye el caso de uso de auth.
func NewUseCase(users repository.UserRepository, companies repository.CompanyRepository, jwtCfg JWTConfig, log zerolog.Logger) *UseCase {
	return &UseCase{users: users, companies: companies, jwtCfg: jwtCfg, log: log, cost: bcrypt.DefaultCost}
}

// WithBcryptCost cambia el costo de bcrypt (los tests usan bcrypt.MinCost).
func (uc *UseCase) WithBcryptCost(cost int) *UseCase {
	uc.cost = cost
	return uc
}

// Register crea la empresa y su primer usuario (admin).
func (uc *UseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.RegisterResponse, error) {
	rutEmpresa, err := rut.Canonical(in.RutEmpresa)
	if err != nil {
		return nil, fmt.Errorf("%w: rut_empresa: %v", domain.ErrInvalidInput, err)
	}
	razon := strings.TrimSpace(in.RazonSocial)
	if razon == "" {
		return nil, fmt.Errorf("%w: razon_social es requerida", domain.ErrInvalidInput)
	}
	if in.Telefono != "" && !formcheck.PhoneCL(in.Telefono) {
		return nil, fmt.Errorf("%w: teléfono inválido", domain.ErrInvalidInput)
	}
	email, err := checkCredentials(in.Email, in.Password, in.Name+" "+razon)
	if err != nil {
		return nil, err
	}

	existing, err := uc.companies.GetByRut(ctx, rutEmpresa)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: la empresa %s ya está registrada", domain.ErrDuplicate, rut.Format(rutEmpresa))
	}
	if u, err := uc.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, fmt.Errorf("%w: el email ya está registrado", domain.ErrDuplicate)
	}

	now := time.Now()
	company := &entity.Company{
		ID:        uuid.NewString(),
		Rut:       rutEmpresa,
		Name:      razon,
		Email:     email,
		Phone:     in.Telefono,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.companies.Create(ctx, company); err != nil {
		return nil, err
	}
	user, err := uc.newUser(ctx, company.ID, email, in.Password, in.Name, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("empresa_id", company.ID).Str("rut", company.Rut).Msg("empresa registrada")
	return &dto.RegisterResponse{Company: toCompanyResponse(company), User: *toUserResponse(user)}, nil
}

// CreateUser agrega un usuario a la empresa del administrador.
func (uc *UseCase) CreateUser(ctx context.Context, empresaID string, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleLector
	}
	if !entity.ValidRole(role) {
		return nil, fmt.Errorf("%w: rol %q (admin, contador o lector)", domain.ErrInvalidInput, role)
	}
	email, err := checkCredentials(in.Email, in.Password, in.Name)
	if err != nil {
		return nil, err
	}
	if u, err := uc.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, fmt.Errorf("%w: el email ya está registrado", domain.ErrDuplicate)
	}
	user, err := uc.newUser(ctx, empresaID, email, in.Password, in.Name, role)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ListUsers usuarios de la empresa.
func (uc *UseCase) ListUsers(ctx context.Context, empresaID string) ([]dto.UserResponse, error) {
	users, err := uc.users.ListByEmpresa(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *toUserResponse(u))
	}
	return out, nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
func (uc *UseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.Active() {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.EmpresaID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: *toUserResponse(user)}, nil
}

// Me devuelve el usuario del token.
func (uc *UseCase) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return toUserResponse(user), nil
}

// Company empresa del token.
func (uc *UseCase) Company(ctx context.Context, empresaID string) (*dto.CompanyResponse, error) {
	c, err := uc.companies.GetByID(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	out := toCompanyResponse(c)
	return &out, nil
}

func (uc *UseCase) newUser(ctx context.Context, empresaID, email, password, name, role string) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}
	now := time.Now()
	user := &entity.User{
		ID:           uuid.NewString(),
		EmpresaID:    empresaID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// checkCredentials valida email y contraseña; devuelve el email normalizado.
// formCtx es el resto del formulario: la contraseña no debe contenerlo.
func checkCredentials(email, password, formCtx string) (string, error) {
	email = normalizeEmail(email)
	if !formcheck.Email(email) {
		return "", fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	req := formcheck.CheckPassword(password)
	if !req.OK {
		var missing []string
		if !req.Length {
			missing = append(missing, "al menos 8 caracteres")
		}
		if !req.Letters {
			missing = append(missing, "letras")
		}
		if !req.Digits {
			missing = append(missing, "números")
		}
		return "", fmt.Errorf("%w: la contraseña debe tener %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if formcheck.PasswordScore(password, email+" "+formCtx) < MinPasswordScore {
		return "", fmt.Errorf("%w: contraseña demasiado débil", domain.ErrInvalidInput)
	}
	return email, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		EmpresaID: u.EmpresaID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

func toCompanyResponse(c *entity.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:        c.ID,
		Rut:       c.Rut,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}
