package livesync

import (
	"sync"
	"time"
)

// FilterDebounce espera entre el último cambio de filtro y la recarga.
const FilterDebounce = 400 * time.Millisecond

// Debouncer ejecuta solo el último fn pedido dentro de la ventana.
type Debouncer struct {
	wait time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer crea un debouncer con la espera indicada.
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger reprograma fn; un Trigger anterior pendiente se descarta.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Cancel descarta el fn pendiente. Devuelve true si había uno.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
