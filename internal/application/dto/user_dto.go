package dto

import "time"

// RegisterRequest alta de una empresa junto con su usuario administrador.
type RegisterRequest struct {
	RutEmpresa  string `json:"rut_empresa"`
	RazonSocial string `json:"razon_social"`
	Telefono    string `json:"telefono"`
	Name        string `json:"nombre"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// RegisterResponse empresa y administrador creados.
type RegisterResponse struct {
	Company CompanyResponse `json:"empresa"`
	User    UserResponse    `json:"user"`
}

// CreateUserRequest alta de un usuario dentro de la empresa del administrador.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"nombre"`
	Role     string `json:"role"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID        string    `json:"id"`
	EmpresaID string    `json:"empresa_id"`
	Email     string    `json:"email"`
	Name      string    `json:"nombre"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest credenciales.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse token JWT más el usuario.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
