package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

// Mensajes que el motor envía a la vista.
type (
	loadingMsg struct{}
	rowsMsg    struct {
		rows  []client.Row
		label string
	}
	loadErrorMsg struct{ text string }
	patchMsg     struct {
		row   client.Row
		cells []string
	}
	notifyMsg struct{ n livesync.Notification }
	detailMsg struct {
		view livesync.DetailView
		err  error
	}
)

// Bridge adapta livesync.View y livesync.Notifier a mensajes de bubbletea.
// Hasta que se asigna el programa los mensajes se encolan.
type Bridge struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
}

var (
	_ livesync.View     = (*Bridge)(nil)
	_ livesync.Notifier = (*Bridge)(nil)
)

// NewBridge crea el puente sin destino.
func NewBridge() *Bridge { return &Bridge{} }

// Attach vacía la cola en orden y recién entonces fija el destino
// (normalmente (*tea.Program).Send). Lo emitido durante el vaciado se encola detrás.
func (b *Bridge) Attach(send func(tea.Msg)) {
	for {
		b.mu.Lock()
		queued := b.pending
		b.pending = nil
		if len(queued) == 0 {
			b.send = send
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
		for _, m := range queued {
			send(m)
		}
	}
}

func (b *Bridge) emit(m tea.Msg) {
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending = append(b.pending, m)
	}
	b.mu.Unlock()
	if send != nil {
		send(m)
	}
}

func (b *Bridge) Loading() { b.emit(loadingMsg{}) }

func (b *Bridge) Render(rows []client.Row, label string) {
	b.emit(rowsMsg{rows: rows, label: label})
}

func (b *Bridge) RenderError(msg string) { b.emit(loadErrorMsg{text: msg}) }

func (b *Bridge) PatchRow(row client.Row, cells []string) {
	b.emit(patchMsg{row: row, cells: cells})
}

func (b *Bridge) Notify(n livesync.Notification) { b.emit(notifyMsg{n: n}) }
