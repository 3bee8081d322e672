// Package tui muestra la tabla de documentos en la terminal y la mantiene al día
// con los mensajes del motor livesync.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

const (
	// FlashDuration tiempo que una celda parchada queda resaltada.
	FlashDuration = 1200 * time.Millisecond
	// NoticeTTL vida de una notificación no persistente.
	NoticeTTL = 4 * time.Second
)

// Ciclos de los filtros de tipo y estado; "" = todos.
var (
	docTypes    = []string{"", "factura", "boleta", "nota_credito"}
	docStatuses = []string{"", "pendiente", "procesado", "error"}
)

type (
	unflashMsg struct {
		id  int64
		seq int
	}
	expireMsg struct {
		key string
		seq int
	}
)

type note struct {
	key     string
	level   livesync.Level
	text    string
	persist bool
	seq     int
}

// Model estado de la vista.
type Model struct {
	ctx     context.Context
	actions Actions
	styles  Styles

	table   table.Model
	search  textinput.Model
	spinner spinner.Model

	rows    []client.Row
	label   string
	loading bool
	loadErr string

	flashed map[int64]map[string]int
	notes   []note
	seq     int

	detail   *livesync.DetailView
	typeIdx  int
	stateIdx int
	width    int
}

// New construye la vista. ctx acota las acciones lanzadas desde el teclado.
func New(ctx context.Context, actions Actions) Model {
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	t.SetStyles(st)

	in := textinput.New()
	in.Placeholder = "RUT, folio, razón social…"
	in.CharLimit = 80
	in.Width = 40
	in.Prompt = "Buscar: "

	return Model{
		ctx:     ctx,
		actions: actions,
		styles:  DefaultStyles(),
		table:   t,
		search:  in,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		flashed: map[int64]map[string]int{},
		loading: true,
	}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Fecha", Width: 10},
		{Title: "Tipo", Width: 15},
		{Title: "Folio", Width: 10},
		{Title: "RUT", Width: 13},
		{Title: "Razón social", Width: 24},
		{Title: "Neto", Width: 12},
		{Title: "IVA", Width: 11},
		{Title: "Total", Width: 12},
		{Title: "Estado", Width: 14},
		{Title: "SII", Width: 13},
	}
}

// Init arranca el spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update procesa mensajes del motor y del teclado.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(5, msg.Height-10))
		return m, nil

	case loadingMsg:
		m.loading = true
		return m, m.spinner.Tick

	case rowsMsg:
		m.loading = false
		m.loadErr = ""
		m.rows = msg.rows
		m.label = msg.label
		m.flashed = map[int64]map[string]int{}
		m.refreshTable()
		return m, nil

	case loadErrorMsg:
		m.loading = false
		m.loadErr = msg.text
		return m, nil

	case patchMsg:
		return m, m.applyPatch(msg)

	case unflashMsg:
		if cells, ok := m.flashed[msg.id]; ok {
			for c, s := range cells {
				if s == msg.seq {
					delete(cells, c)
				}
			}
			if len(cells) == 0 {
				delete(m.flashed, msg.id)
			}
			m.refreshTable()
		}
		return m, nil

	case notifyMsg:
		return m, m.pushNote(msg.n)

	case expireMsg:
		for i, n := range m.notes {
			if n.key == msg.key && n.seq == msg.seq {
				m.notes = append(m.notes[:i], m.notes[i+1:]...)
				break
			}
		}
		return m, nil

	case detailMsg:
		if msg.err == nil && m.detail != nil && m.detail.ID == msg.view.ID {
			v := msg.view
			m.detail = &v
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.search.Focused() {
		switch msg.String() {
		case "enter", "esc":
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		prev := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != prev {
			f := m.actions.Filter()
			f.Search = m.search.Value()
			m.actions.SetFilter(f)
		}
		return m, cmd
	}

	if m.detail != nil {
		id := m.detail.ID
		switch msg.String() {
		case "esc", "q":
			m.detail = nil
		case "v":
			return m, m.run(func(ctx context.Context) { _, _ = m.actions.Validate(ctx, id) })
		case "s":
			return m, m.run(func(ctx context.Context) { _, _ = m.actions.RefreshSII(ctx, id) })
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		cmd := m.search.Focus()
		return m, cmd
	case "t":
		m.typeIdx = (m.typeIdx + 1) % len(docTypes)
		f := m.actions.Filter()
		f.DocType = docTypes[m.typeIdx]
		m.actions.SetFilter(f)
		return m, nil
	case "e":
		m.stateIdx = (m.stateIdx + 1) % len(docStatuses)
		f := m.actions.Filter()
		f.DocStatus = docStatuses[m.stateIdx]
		m.actions.SetFilter(f)
		return m, nil
	case "x":
		m.typeIdx, m.stateIdx = 0, 0
		m.search.SetValue("")
		return m, m.run(func(ctx context.Context) { _ = m.actions.ResetFilters(ctx) })
	case "r":
		return m, m.run(func(ctx context.Context) { _ = m.actions.Reload(ctx) })
	case "enter":
		return m.openDetail()
	case "v":
		if id, ok := m.selectedID(); ok {
			return m, m.run(func(ctx context.Context) { _, _ = m.actions.Validate(ctx, id) })
		}
		return m, nil
	case "s":
		if id, ok := m.selectedID(); ok {
			return m, m.run(func(ctx context.Context) { _, _ = m.actions.RefreshSII(ctx, id) })
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// openDetail pinta lo cacheado y pide el registro completo.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	id, ok := m.selectedID()
	if !ok {
		return m, nil
	}
	v, err := m.actions.CachedDetail(id)
	if err != nil {
		return m, nil
	}
	v.ID = id
	m.detail = &v
	ctx, actions := m.ctx, m.actions
	return m, func() tea.Msg {
		full, err := actions.OpenDetail(ctx, id)
		full.ID = id
		return detailMsg{view: full, err: err}
	}
}

// run ejecuta fn fuera del loop de la vista; el resultado llega por el Bridge.
func (m Model) run(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

func (m Model) selectedID() (int64, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return 0, false
	}
	return m.rows[i].ID, true
}

func (m *Model) applyPatch(p patchMsg) tea.Cmd {
	idx := -1
	for i, r := range m.rows {
		if r.ID == p.row.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	m.rows[idx] = p.row
	m.seq++
	seq := m.seq
	cells := m.flashed[p.row.ID]
	if cells == nil {
		cells = map[string]int{}
		m.flashed[p.row.ID] = cells
	}
	for _, c := range p.cells {
		cells[c] = seq
	}
	m.refreshTable()
	id := p.row.ID
	return tea.Tick(FlashDuration, func(time.Time) tea.Msg { return unflashMsg{id: id, seq: seq} })
}

// pushNote reemplaza la notificación con la misma clave o agrega una nueva.
func (m *Model) pushNote(n livesync.Notification) tea.Cmd {
	m.seq++
	nt := note{key: n.Key, level: n.Level, text: n.Message, persist: n.Persist, seq: m.seq}
	if nt.key == "" {
		nt.key = "n" + strconv.Itoa(m.seq)
	}
	replaced := false
	for i := range m.notes {
		if m.notes[i].key == nt.key {
			m.notes[i] = nt
			replaced = true
			break
		}
	}
	if !replaced {
		m.notes = append(m.notes, nt)
	}
	if nt.persist {
		return nil
	}
	key, seq := nt.key, nt.seq
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg { return expireMsg{key: key, seq: seq} })
}

func (m *Model) refreshTable() {
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = m.cells(r)
	}
	m.table.SetRows(rows)
}

func (m Model) cells(r client.Row) table.Row {
	flash := m.flashed[r.ID]
	mark := func(name, v string) string {
		if _, ok := flash[name]; ok {
			return "▸" + v
		}
		return v
	}
	return table.Row{
		strconv.FormatInt(r.ID, 10),
		mark("fecha_emision", fecha(r.FechaEmision)),
		mark("tipo_documento", clfmt.OrDash(r.TipoDocumento)),
		mark("folio", clfmt.OrDash(r.Folio)),
		mark("rut_proveedor", clfmt.OrDash(r.RutProveedor)),
		mark("razon_social_proveedor", clfmt.OrDash(r.RazonSocialProveedor)),
		mark("monto_neto", money(r.MontoNeto)),
		mark("iva", money(r.IVA)),
		mark("total", money(r.Total)),
		mark("estado", EstadoBadge(r.Estado)),
		mark("sii_estado", SIIBadge(r)),
	}
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return clfmt.Placeholder
	}
	return clfmt.Money(&d.Decimal)
}

func fecha(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return clfmt.OrDash(s)
	}
	return clfmt.Date(t)
}

// ── Render ──────────────────────────────────────────────────────────────────

// View dibuja la vista actual.
func (m Model) View() string {
	if m.detail != nil {
		return m.viewDetail() + "\n" + m.viewNotes() + m.styles.Muted.Render("v validar · s estado SII · esc volver")
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Documentos"))
	if m.loading {
		b.WriteString(" " + m.spinner.View())
	} else if m.label != "" {
		b.WriteString(m.styles.Muted.Render(" · " + m.label))
	}
	b.WriteString("\n")
	b.WriteString(m.search.View())
	fmt.Fprintf(&b, "   Tipo: %s   Estado: %s\n\n", orTodos(docTypes[m.typeIdx]), orTodos(docStatuses[m.stateIdx]))

	if m.loadErr != "" {
		b.WriteString(m.styles.ErrorRow.Render(m.loadErr))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	b.WriteString(m.viewNotes())
	b.WriteString(m.styles.Muted.Render("/ buscar · t tipo · e estado · x limpiar · r recargar · enter detalle · v validar · s estado SII · q salir"))
	return b.String()
}

func orTodos(s string) string {
	if s == "" {
		return "todos"
	}
	return s
}

func (m Model) viewNotes() string {
	if len(m.notes) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range m.notes {
		b.WriteString(m.styles.Level(n.level).Render(n.text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	return RenderDetail(m.styles, *m.detail)
}

// RenderDetail dibuja el detalle de un documento.
func RenderDetail(st Styles, d livesync.DetailView) string {
	var b strings.Builder
	b.WriteString(st.Header.Render(d.Title))
	b.WriteString("\n")
	var pills []string
	for _, p := range []livesync.Pill{d.Estado, d.SII} {
		if p.Text != "" {
			pills = append(pills, st.Pill(p))
		}
	}
	b.WriteString(strings.Join(pills, "  "))
	b.WriteString("\n")

	for _, s := range d.Sections {
		if s.Title != "" {
			b.WriteString(st.Section.Render(s.Title))
			b.WriteString("\n")
		}
		for _, kv := range s.Items {
			b.WriteString(st.Label.Render(kv.Label))
			b.WriteString(kv.Value)
			b.WriteString("\n")
		}
	}
	if d.ArchivoURL != "" {
		b.WriteString("\n" + st.Muted.Render("Archivo: ") + d.ArchivoURL + "\n")
	}
	if d.TrackID != "" {
		b.WriteString(st.Muted.Render("Track ID: ") + d.TrackID + "\n")
	}
	return st.Detail.Render(strings.TrimRight(b.String(), "\n"))
}
