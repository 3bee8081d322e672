package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleContador = "contador"
	RoleLector   = "lector"
)

// ValidRole indica si r es uno de los roles conocidos.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleContador || r == RoleLector
}

// User usuario de una empresa.
type User struct {
	ID           string
	EmpresaID    string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string // admin, contador, lector
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active indica si el usuario puede iniciar sesión.
func (u *User) Active() bool { return u.Status == "active" }
