package livesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/client"
)

// ErrStale la respuesta llegó después de otra recarga más nueva y se descartó.
var ErrStale = errors.New("livesync: respuesta de una recarga anterior")

// LoadErrorMessage texto de la fila de error.
const LoadErrorMessage = "Error al cargar documentos."

// ResultLabel texto del contador de resultados.
func ResultLabel(n int) string {
	switch n {
	case 0:
		return "Sin resultados"
	case 1:
		return "1 resultado"
	default:
		return fmt.Sprintf("%d resultados", n)
	}
}

// Loader recarga el listado completo y reemplaza el cache.
// Cada recarga lleva un número de generación; solo la última puede escribir.
type Loader struct {
	api   API
	store *Store
	view  View
	log   zerolog.Logger

	gen atomic.Uint64
	// apply serializa el chequeo de generación con la escritura del cache y el render.
	apply sync.Mutex

	mu         sync.Mutex
	onRendered []func()
}

// NewLoader construye el loader.
func NewLoader(api API, store *Store, view View, log zerolog.Logger) *Loader {
	return &Loader{api: api, store: store, view: view, log: log}
}

// OnRendered registra fn para después de cada render exitoso.
func (l *Loader) OnRendered(fn func()) {
	l.mu.Lock()
	l.onRendered = append(l.onRendered, fn)
	l.mu.Unlock()
}

// Load trae el listado con el filtro. Sin reintentos: un error deja la fila de error.
func (l *Loader) Load(ctx context.Context, f client.FilterState) error {
	gen := l.gen.Add(1)
	l.view.Loading()

	rows, err := l.api.List(ctx, f)

	l.apply.Lock()
	if gen != l.gen.Load() {
		l.apply.Unlock()
		l.log.Debug().Uint64("gen", gen).Msg("listado descartado")
		return ErrStale
	}
	if err != nil {
		l.view.RenderError(LoadErrorMessage)
		l.apply.Unlock()
		l.log.Warn().Err(err).Msg("error al cargar documentos")
		return err
	}
	l.store.Replace(rows)
	l.view.Render(l.store.Rows(), ResultLabel(len(rows)))
	l.apply.Unlock()

	l.mu.Lock()
	hooks := append([]func(){}, l.onRendered...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}
