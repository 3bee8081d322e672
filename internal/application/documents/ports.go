package documents

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// FileStorage guarda y recupera los archivos originales (disco local o GCS).
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL ruta pública para archivo_url; vacío si el driver no expone URLs.
	URL(key string) string
}

// PageCounter cuenta páginas de un PDF; error si el archivo no es un PDF legible.
type PageCounter interface {
	CountPages(r io.ReadSeeker) (int, error)
}

// Extraction metadatos obtenidos del contenido del archivo.
// Los campos vacíos indican que no se encontraron.
type Extraction struct {
	TipoDocumento        string
	Folio                string
	RutProveedor         string
	RazonSocialProveedor string
	FechaEmision         *time.Time
	MontoNeto            decimal.NullDecimal
	MontoExento          decimal.NullDecimal
	IVA                  decimal.NullDecimal
	Total                decimal.NullDecimal
}

// Extractor lee el archivo y devuelve los metadatos tributarios.
type Extractor interface {
	Extract(ctx context.Context, mimeType string, content []byte) (*Extraction, error)
}

// ReportGenerator genera el PDF del listado filtrado.
type ReportGenerator interface {
	GenerateDocumentReport(title string, docs []*entity.Document) ([]byte, error)
}
