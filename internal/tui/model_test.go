package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

type fakeActions struct {
	mu        sync.Mutex
	filter    client.FilterState
	filters   []client.FilterState
	resets    int
	validated []int64
	opened    []int64
}

func (f *fakeActions) Filter() client.FilterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

func (f *fakeActions) SetFilter(fs client.FilterState) {
	f.mu.Lock()
	f.filter = fs
	f.filters = append(f.filters, fs)
	f.mu.Unlock()
}

func (f *fakeActions) ResetFilters(context.Context) error {
	f.mu.Lock()
	f.filter = client.FilterState{}
	f.resets++
	f.mu.Unlock()
	return nil
}

func (f *fakeActions) Reload(context.Context) error { return nil }

func (f *fakeActions) CachedDetail(id int64) (livesync.DetailView, error) {
	return livesync.DetailView{ID: id, Title: "factura_afecta #10"}, nil
}

func (f *fakeActions) OpenDetail(_ context.Context, id int64) (livesync.DetailView, error) {
	f.mu.Lock()
	f.opened = append(f.opened, id)
	f.mu.Unlock()
	return livesync.DetailView{ID: id, Title: "factura_afecta #10", Sections: []livesync.Section{
		{ID: "meta", Title: "Metadata", Items: []livesync.KV{{Label: "Nombre Archivo", Value: "f10.pdf"}}},
	}}, nil
}

func (f *fakeActions) Validate(_ context.Context, id int64) (*dto.SIIResult, error) {
	f.mu.Lock()
	f.validated = append(f.validated, id)
	f.mu.Unlock()
	return &dto.SIIResult{OK: true}, nil
}

func (f *fakeActions) RefreshSII(context.Context, int64) (*dto.SIIResult, error) { return nil, nil }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm, cmd
}

func sampleRows() []client.Row {
	return []client.Row{
		{ID: 10, FechaEmision: "2024-03-05", TipoDocumento: "factura_afecta", Folio: "555", RutProveedor: "76.111.222-3",
			Total: decimal.NewNullDecimal(decimal.NewFromInt(119000)), Estado: "pendiente"},
		{ID: 11, TipoDocumento: "boleta_afecta", Folio: "777", Estado: "procesado", SIIEstado: "ACEPTADO"},
	}
}

func TestModel_RenderYPatch(t *testing.T) {
	m := New(context.Background(), &fakeActions{})
	m, _ = step(t, m, rowsMsg{rows: sampleRows(), label: "2 resultados"})

	v := m.View()
	assert.Contains(t, v, "2 resultados")
	assert.Contains(t, v, "555")
	assert.Contains(t, v, "$119.000")
	assert.Contains(t, v, "05-03-2024")
	assert.Contains(t, v, "… pendiente")

	patched := sampleRows()[0]
	patched.Estado = "procesado"
	m, cmd := step(t, m, patchMsg{row: patched, cells: []string{"estado"}})
	require.NotNil(t, cmd, "el parche programa el fin del resaltado")
	assert.Equal(t, "▸✓ procesado", m.table.Rows()[0][9])
	assert.Equal(t, "✓ aceptado", m.table.Rows()[1][10])

	m, _ = step(t, m, unflashMsg{id: 10, seq: m.seq})
	assert.Equal(t, "✓ procesado", m.table.Rows()[0][9])
}

func TestModel_PatchDeFilaDesconocida(t *testing.T) {
	m := New(context.Background(), &fakeActions{})
	m, _ = step(t, m, rowsMsg{rows: sampleRows(), label: "2 resultados"})
	m, cmd := step(t, m, patchMsg{row: client.Row{ID: 99, Estado: "error"}, cells: []string{"estado"}})
	assert.Nil(t, cmd)
	assert.Len(t, m.table.Rows(), 2)
}

func TestModel_ErrorDeCarga(t *testing.T) {
	m := New(context.Background(), &fakeActions{})
	m, _ = step(t, m, loadErrorMsg{text: livesync.LoadErrorMessage})
	assert.Contains(t, m.View(), livesync.LoadErrorMessage)

	m, _ = step(t, m, rowsMsg{rows: nil, label: "Sin resultados"})
	assert.NotContains(t, m.View(), livesync.LoadErrorMessage)
}

func TestModel_NotificacionesPorClave(t *testing.T) {
	m := New(context.Background(), &fakeActions{})
	m, cmd := step(t, m, notifyMsg{n: livesync.Notification{Key: "upload", Level: livesync.LevelInfo, Message: "Subiendo archivos…", Persist: true}})
	assert.Nil(t, cmd, "las persistentes no expiran")
	m, cmd = step(t, m, notifyMsg{n: livesync.Notification{Key: "upload", Level: livesync.LevelSuccess, Message: "Subidos: 2"}})
	require.NotNil(t, cmd)

	require.Len(t, m.notes, 1)
	assert.Contains(t, m.View(), "Subidos: 2")
	assert.NotContains(t, m.View(), "Subiendo archivos")

	m, _ = step(t, m, expireMsg{key: "upload", seq: m.notes[0].seq})
	assert.Empty(t, m.notes)
}

func TestModel_Filtros(t *testing.T) {
	fa := &fakeActions{}
	m := New(context.Background(), fa)

	m, _ = step(t, m, key("t"))
	m, _ = step(t, m, key("e"))
	assert.Equal(t, client.FilterState{DocType: "factura", DocStatus: "pendiente"}, fa.Filter())
	assert.Contains(t, m.View(), "Tipo: factura")

	m, _ = step(t, m, key("/"))
	require.True(t, m.search.Focused())
	m, _ = step(t, m, key("a"))
	m, _ = step(t, m, key("c"))
	assert.Equal(t, "ac", fa.Filter().Search)
	m, _ = step(t, m, key("esc"))
	assert.False(t, m.search.Focused())

	m, cmd := step(t, m, key("x"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, fa.resets)
	assert.Empty(t, m.search.Value())
	assert.True(t, strings.Contains(m.View(), "Tipo: todos"))
}

func TestModel_DetalleYValidar(t *testing.T) {
	fa := &fakeActions{}
	m := New(context.Background(), fa)
	m, _ = step(t, m, rowsMsg{rows: sampleRows(), label: "2 resultados"})

	m, cmd := step(t, m, key("enter"))
	require.NotNil(t, m.detail)
	assert.Contains(t, m.View(), "factura_afecta #10")

	m, _ = step(t, m, cmd())
	assert.Equal(t, []int64{10}, fa.opened)
	assert.Contains(t, m.View(), "f10.pdf")

	m, cmd = step(t, m, key("v"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []int64{10}, fa.validated)

	m, _ = step(t, m, key("esc"))
	assert.Nil(t, m.detail)
}

func TestBridge_EncolaHastaAttach(t *testing.T) {
	b := NewBridge()
	b.Loading()
	b.Notify(livesync.Notification{Message: "hola"})

	var got []tea.Msg
	b.Attach(func(m tea.Msg) { got = append(got, m) })
	b.RenderError("x")

	require.Len(t, got, 3)
	assert.IsType(t, loadingMsg{}, got[0])
	assert.Equal(t, notifyMsg{n: livesync.Notification{Message: "hola"}}, got[1])
	assert.Equal(t, loadErrorMsg{text: "x"}, got[2])
}

func TestBridge_EmitDuranteVaciadoRespetaOrden(t *testing.T) {
	b := NewBridge()
	b.Loading()
	b.Render([]client.Row{{ID: 1}}, "1 resultado")

	var (
		got     []tea.Msg
		patched bool
	)
	b.Attach(func(m tea.Msg) {
		if !patched {
			patched = true
			b.PatchRow(client.Row{ID: 1, Estado: "procesado"}, []string{"estado"})
		}
		got = append(got, m)
	})

	require.Len(t, got, 3)
	assert.IsType(t, loadingMsg{}, got[0])
	assert.IsType(t, rowsMsg{}, got[1])
	assert.IsType(t, patchMsg{}, got[2])
}

func TestBadges(t *testing.T) {
	assert.Equal(t, "sin validar", SIIBadge(client.Row{}))
	assert.Equal(t, "✓ validado", SIIBadge(client.Row{ValidadoSII: true}))
	assert.Equal(t, "… validando", SIIBadge(client.Row{SIIEstado: "RECIBIDO"}))
	assert.Equal(t, "✗ error", EstadoBadge("error"))
	assert.Equal(t, "—", EstadoBadge(""))
}
