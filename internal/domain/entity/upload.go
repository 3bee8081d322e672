package entity

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
)

// MaxUploadBytes tamaño máximo por archivo (10 MB).
const MaxUploadBytes int64 = 10 * 1024 * 1024

// AllowedExtensions extensiones aceptadas para carga de documentos.
var AllowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

// CheckUpload valida extensión y tamaño antes de leer o enviar el archivo.
func CheckUpload(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q (permitidos: %s)", domain.ErrUnsupported, name, strings.Join(AllowedExtensions, ", "))
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: %q pesa %.2f MB (máximo 10 MB)", domain.ErrFileTooLarge, name, float64(size)/1024/1024)
	}
	return nil
}

// MimeFor devuelve el content-type según extensión.
func MimeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
