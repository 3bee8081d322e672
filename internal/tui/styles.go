package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

// Styles estilos de la vista.
type Styles struct {
	Header   lipgloss.Style
	Muted    lipgloss.Style
	Label    lipgloss.Style
	Section  lipgloss.Style
	Focused  lipgloss.Style
	ErrorRow lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	Detail lipgloss.Style
}

// DefaultStyles paleta por defecto.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(22),
		Section:  lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1),
		Focused:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		ErrorRow: lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Italic(true),

		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),

		Detail: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Level estilo de una notificación.
func (s Styles) Level(l livesync.Level) lipgloss.Style {
	switch l {
	case livesync.LevelSuccess:
		return s.Success
	case livesync.LevelWarning:
		return s.Warning
	case livesync.LevelError:
		return s.Error
	default:
		return s.Info
	}
}

// Pill estilo por tono de pill (ok, warn, err).
func (s Styles) Pill(p livesync.Pill) string {
	switch p.Kind {
	case "ok":
		return s.Success.Render(p.Text)
	case "warn":
		return s.Warning.Render(p.Text)
	case "err":
		return s.Error.Render(p.Text)
	default:
		return p.Text
	}
}

// EstadoBadge texto de la celda de estado.
func EstadoBadge(estado string) string {
	switch estado {
	case "":
		return "—"
	case "procesado", "validado":
		return "✓ " + estado
	case "cola", "pendiente", "procesando":
		return "… " + estado
	default:
		return "✗ " + estado
	}
}

// SIIBadge texto de la celda SII: sin validar, validando o el estado devuelto.
func SIIBadge(r client.Row) string {
	switch r.SIIEstado {
	case "ACEPTADO":
		return "✓ aceptado"
	case "RECHAZADO":
		return "✗ rechazado"
	case "EN_PROCESO", "RECIBIDO":
		return "… validando"
	case "":
		if r.ValidadoSII {
			return "✓ validado"
		}
		return "sin validar"
	default:
		return r.SIIEstado
	}
}
