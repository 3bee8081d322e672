package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PollInterval intervalo entre consultas de progress-batch.
const PollInterval = 5 * time.Second

// Reconciler consulta en lote las filas pendientes y parcha sus celdas.
// Corre a lo más un loop; se detiene solo cuando no quedan filas pendientes.
type Reconciler struct {
	api      API
	store    *Store
	view     View
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewReconciler construye el reconciliador; interval <= 0 usa PollInterval.
func NewReconciler(api API, store *Store, view View, interval time.Duration, log zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = PollInterval
	}
	return &Reconciler{api: api, store: store, view: view, interval: interval, log: log}
}

// Start lanza el loop si hay filas pendientes y no hay otro corriendo.
// El primer tick ocurre después de un intervalo.
func (r *Reconciler) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || len(r.store.PendingIDs()) == 0 {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return true
}

// Running indica si hay un loop activo.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stop cancela el loop y espera a que termine.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reconciler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTimer(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.finish()
			return
		case <-t.C:
		}
		r.Tick(ctx)

		r.mu.Lock()
		if ctx.Err() != nil || len(r.store.PendingIDs()) == 0 {
			r.running = false
			r.cancel()
			r.mu.Unlock()
			r.log.Debug().Msg("polling detenido: sin filas pendientes")
			return
		}
		r.mu.Unlock()
		t.Reset(r.interval)
	}
}

func (r *Reconciler) finish() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Tick hace una consulta y parcha las filas que cambiaron. Un error de red se
// registra y el siguiente tick vuelve a intentar.
func (r *Reconciler) Tick(ctx context.Context) {
	ids := r.store.PendingIDs()
	if len(ids) == 0 {
		return
	}
	patches, err := r.api.ProgressBatch(ctx, ids)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn().Err(err).Int("pendientes", len(ids)).Msg("progress-batch")
		}
		return
	}
	changes := r.store.Patch(patches)
	for _, ch := range changes {
		r.view.PatchRow(ch.Row, ch.Cells)
	}
	r.log.Debug().Int("pendientes", len(ids)).Int("cambios", len(changes)).Msg("tick")
}
