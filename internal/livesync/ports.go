// Package livesync mantiene la tabla de documentos sincronizada con el backend:
// recarga filtrada con debounce, polling de filas en vuelo, carga de archivos,
// detalle y acciones SII.
package livesync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
)

// API operaciones del backend que usa el motor (las implementa *client.Client).
type API interface {
	List(ctx context.Context, f client.FilterState) ([]client.Row, error)
	Get(ctx context.Context, id int64) (map[string]any, error)
	ProgressBatch(ctx context.Context, ids []int64) ([]client.RowPatch, error)
	Upload(ctx context.Context, files []client.UploadFile, progress client.Progress) (*dto.UploadResult, error)
	ValidarSII(ctx context.Context, id int64) (*dto.SIIResult, error)
	EstadoSII(ctx context.Context, id int64) (*dto.SIIResult, error)
}

var _ API = (*client.Client)(nil)

// View destino de render de la tabla (la TUI o un log).
type View interface {
	// Loading se llama al iniciar una recarga (skeleton).
	Loading()
	// Render reemplaza todas las filas; label es "Sin resultados", "1 resultado" o "N resultados".
	Render(rows []client.Row, label string)
	// RenderError muestra la fila de error en línea.
	RenderError(msg string)
	// PatchRow actualiza solo las celdas indicadas de una fila ya visible.
	PatchRow(row client.Row, cells []string)
}

// Level severidad de una notificación.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification aviso al usuario. Key agrupa avisos de una misma acción
// (el segundo reemplaza al primero); Persist lo deja visible hasta el siguiente.
type Notification struct {
	Key     string
	Level   Level
	Message string
	Persist bool
}

// Notifier recibe los avisos del motor.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapta una función a Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier escribe los avisos en el log (modo sin TUI).
func LogNotifier(log zerolog.Logger) Notifier {
	return NotifierFunc(func(n Notification) {
		ev := log.Info()
		switch n.Level {
		case LevelWarning:
			ev = log.Warn()
		case LevelError:
			ev = log.Error()
		}
		ev.Str("key", n.Key).Msg(n.Message)
	})
}
