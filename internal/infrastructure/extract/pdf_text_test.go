package extract_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/extract"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/pdf"
)

func TestPDFExtractor_ImagenSinMetadatos(t *testing.T) {
	e := extract.NewPDFExtractor(zerolog.Nop())
	ex, err := e.Extract(context.Background(), "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Empty(t, ex.TipoDocumento)
	assert.False(t, ex.Total.Valid)
}

func TestPDFExtractor_PDFInvalido(t *testing.T) {
	e := extract.NewPDFExtractor(zerolog.Nop())
	_, err := e.Extract(context.Background(), "application/pdf", []byte("no es un pdf"))
	assert.Error(t, err)
}

func TestPDFExtractor_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extract.NewPDFExtractor(zerolog.Nop()).Extract(ctx, "application/pdf", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageCounter(t *testing.T) {
	docs := []*entity.Document{{ID: 1, Estado: entity.EstadoProcesado}}
	out, err := pdf.NewMarotoPDFGenerator("Demo").GenerateDocumentReport("Documentos", docs)
	require.NoError(t, err)

	n, err := extract.PageCounter{}.CountPages(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = extract.PageCounter{}.CountPages(bytes.NewReader([]byte("%PDF-roto")))
	assert.Error(t, err)
}
