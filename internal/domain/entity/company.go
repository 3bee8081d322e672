package entity

import "time"

// Company empresa (tenant). Los documentos y usuarios cuelgan de ella.
type Company struct {
	ID        string
	Rut       string // forma canónica "12345678-5"
	Name      string // razón social
	Email     string
	Phone     string
	Status    string // active, suspended
	CreatedAt time.Time
	UpdatedAt time.Time
}
