package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrNoTrackID     = errors.New("el documento no tiene track id SII")
	ErrUnsupported   = errors.New("tipo de archivo no permitido")
	ErrFileTooLarge  = errors.New("archivo excede el tamaño máximo")
	ErrNoEmpresa     = errors.New("el usuario no tiene empresa asociada")
	ErrProviderError = errors.New("error del proveedor externo")
)
