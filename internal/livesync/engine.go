package livesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/client"
)

// Config ajustes del motor; los ceros usan los valores por defecto.
type Config struct {
	PollInterval time.Duration
	Debounce     time.Duration
}

// Engine conecta loader, reconciliador, cola de carga, detalle y acciones SII
// sobre un mismo cache.
type Engine struct {
	Store      *Store
	Loader     *Loader
	Reconciler *Reconciler
	Uploads    *UploadQueue
	Detail     *DetailLoader
	SII        *SIIActions

	debounce *Debouncer
	log      zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	filter client.FilterState
}

// New construye el motor. Cada render exitoso (re)lanza el polling.
func New(api API, view View, notify Notifier, cfg Config, log zerolog.Logger) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = FilterDebounce
	}
	store := NewStore()
	e := &Engine{
		Store:      store,
		Loader:     NewLoader(api, store, view, log),
		Reconciler: NewReconciler(api, store, view, cfg.PollInterval, log),
		Detail:     NewDetailLoader(api, store),
		debounce:   NewDebouncer(cfg.Debounce),
		log:        log,
		ctx:        context.Background(),
	}
	e.Uploads = NewUploadQueue(api, notify, e.reload, log)
	e.SII = NewSIIActions(api, notify, e.reload, log)
	e.Loader.OnRendered(func() {
		e.Reconciler.Start(e.context())
	})
	return e
}

// Start hace la carga inicial. ctx acota la vida del polling y de las recargas diferidas.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()
	return e.Reload(ctx)
}

// Close detiene el polling y descarta recargas pendientes.
func (e *Engine) Close() {
	e.debounce.Cancel()
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.Reconciler.Stop()
}

func (e *Engine) context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// Filter filtro vigente.
func (e *Engine) Filter() client.FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// InitFilter fija el filtro sin recargar; se usa antes de Start.
func (e *Engine) InitFilter(f client.FilterState) {
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
}

// SetFilter cambia el filtro y recarga tras la espera de debounce.
func (e *Engine) SetFilter(f client.FilterState) {
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
	e.debounce.Trigger(func() {
		ctx := e.context()
		if ctx.Err() != nil {
			return
		}
		e.reload(ctx)
	})
}

// ResetFilters limpia el filtro y recarga de inmediato.
func (e *Engine) ResetFilters(ctx context.Context) error {
	e.debounce.Cancel()
	e.mu.Lock()
	e.filter = client.FilterState{}
	e.mu.Unlock()
	return e.Reload(ctx)
}

// Reload recarga con el filtro vigente.
func (e *Engine) Reload(ctx context.Context) error {
	return e.Loader.Load(ctx, e.Filter())
}

func (e *Engine) reload(ctx context.Context) {
	if err := e.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		e.log.Debug().Err(err).Msg("recarga")
	}
}
