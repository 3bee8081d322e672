// Package extract obtiene los metadatos tributarios desde el archivo cargado.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

var (
	_ documents.Extractor   = (*PDFExtractor)(nil)
	_ documents.PageCounter = PageCounter{}
)

// minTextLen bajo este largo se considera que el PDF no tiene capa de texto (escaneado).
const minTextLen = 40

// PDFExtractor lee la capa de texto del PDF y aplica ParseText.
// Las imágenes no tienen capa de texto: terminan con metadatos vacíos.
type PDFExtractor struct {
	log zerolog.Logger
}

// NewPDFExtractor construye el extractor.
func NewPDFExtractor(log zerolog.Logger) *PDFExtractor {
	return &PDFExtractor{log: log}
}

func (e *PDFExtractor) Extract(ctx context.Context, mimeType string, content []byte) (*documents.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mimeType != "application/pdf" {
		return &documents.Extraction{}, nil
	}
	text, err := PDFText(content)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(strings.TrimSpace(text)) < minTextLen {
		e.log.Debug().Int("largo", len(text)).Msg("PDF sin capa de texto")
		return &documents.Extraction{TipoDocumento: entity.TipoDesconocido}, nil
	}
	ex := ParseText(text)
	e.log.Debug().
		Str("tipo", ex.TipoDocumento).
		Str("rut", ex.RutProveedor).
		Str("folio", ex.Folio).
		Msg("extracción PDF")
	return ex, nil
}

// PDFText concatena el texto plano de todas las páginas, separadas por form feed.
func PDFText(content []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// PageCounter cuenta páginas con pdfcpu; falla si el archivo no es un PDF válido.
type PageCounter struct{}

func (PageCounter) CountPages(r io.ReadSeeker) (int, error) {
	n, err := api.PageCount(r, nil)
	if err != nil {
		return 0, fmt.Errorf("pdf: contar páginas: %w", err)
	}
	return n, nil
}
