package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
)

var _ documents.FileStorage = (*GCS)(nil)

// GCS guarda los archivos en un bucket de Google Cloud Storage.
// Las claves incluyen el hash del contenido: si el objeto ya existe no se reescribe.
type GCS struct {
	client    *gcs.Client
	bucket    *gcs.BucketHandle
	publicURL string
	log       zerolog.Logger
}

// NewGCS abre el cliente con las credenciales por defecto del entorno.
// publicURL vacío usa https://storage.googleapis.com/{bucket}.
func NewGCS(ctx context.Context, bucket, publicURL string, log zerolog.Logger, opts ...option.ClientOption) (*GCS, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: cliente GCS: %w", err)
	}
	if publicURL == "" || strings.HasPrefix(publicURL, "/") {
		publicURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{
		client:    client,
		bucket:    client.Bucket(bucket),
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}, nil
}

func (s *GCS) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			s.log.Debug().Str("key", key).Msg("objeto ya existe")
			return nil
		}
		return fmt.Errorf("storage: escribir %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			s.log.Debug().Str("key", key).Msg("objeto ya existe")
			return nil
		}
		return fmt.Errorf("storage: finalizar %s: %w", key, err)
	}
	return nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func (s *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("storage: %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", key, err)
	}
	return rc, nil
}

func (s *GCS) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicURL + "/" + key
}

// Close libera el cliente.
func (s *GCS) Close() error {
	return s.client.Close()
}
