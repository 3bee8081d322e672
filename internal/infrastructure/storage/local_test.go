package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/storage"
)

func TestLocal_SaveOpen(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir(), "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	key := "documentos/emp-1/2024/05/abc123.pdf"
	require.NoError(t, s.Save(ctx, key, strings.NewReader("%PDF-1.4 contenido"), "application/pdf"))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 contenido", string(b))

	assert.Equal(t, "/media/"+key, s.URL(key))
	assert.Empty(t, s.URL(""))
}

func TestLocal_OpenInexistente(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "no/existe.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocal_RechazaRutasFueraDeLaRaiz(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../fuera.pdf", "a/../../fuera.pdf", "/etc/passwd", ""} {
		err := s.Save(ctx, key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, key)
	}
}
