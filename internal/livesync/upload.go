package livesync

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
)

const uploadKey = "upload"

// DuplicateMessage reemplaza el error de unicidad por hash.
const DuplicateMessage = "Archivo duplicado en la empresa"

var uniqueHash = regexp.MustCompile(`(?i)UNIQUE constraint.*hash_sha256`)

// RewriteUploadError traduce el error de unicidad SHA-256 a un mensaje legible.
func RewriteUploadError(msg string) string {
	if uniqueHash.MatchString(msg) {
		return DuplicateMessage
	}
	return msg
}

// UploadSummary resultado de una carga tal como se informa al usuario.
type UploadSummary struct {
	Rejected []string // archivos descartados antes de enviar
	Result   *dto.UploadResult
	Message  string
	Level    Level
}

// FormatUploadResult arma "Subidos: N | Duplicados: M | Errores: …".
func FormatUploadResult(res *dto.UploadResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subidos: %d", res.Created)
	if res.Skipped > 0 {
		fmt.Fprintf(&b, " | Duplicados: %d", res.Skipped)
	}
	if len(res.Errors) > 0 {
		errs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			errs[i] = RewriteUploadError(e)
		}
		b.WriteString(" | Errores: ")
		b.WriteString(strings.Join(errs, ", "))
	}
	return b.String()
}

// UploadQueue valida y envía archivos; al terminar recarga el listado.
type UploadQueue struct {
	api    API
	notify Notifier
	reload func(ctx context.Context)
	log    zerolog.Logger
}

// NewUploadQueue construye la cola. reload puede ser nil.
func NewUploadQueue(api API, notify Notifier, reload func(ctx context.Context), log zerolog.Logger) *UploadQueue {
	return &UploadQueue{api: api, notify: notify, reload: reload, log: log}
}

// Submit descarta localmente los archivos inválidos y envía el resto en un solo request.
// Sin archivos válidos no hay request.
func (q *UploadQueue) Submit(ctx context.Context, files []client.UploadFile, progress client.Progress) UploadSummary {
	var (
		accepted []client.UploadFile
		sum      UploadSummary
	)
	for _, f := range files {
		if err := f.Check(); err != nil {
			sum.Rejected = append(sum.Rejected, f.Name)
			q.log.Debug().Err(err).Str("archivo", f.Name).Msg("archivo rechazado")
			continue
		}
		accepted = append(accepted, f)
	}
	if len(sum.Rejected) > 0 {
		q.notify.Notify(Notification{
			Key:     uploadKey + "-rechazados",
			Level:   LevelWarning,
			Message: "No se enviarán (solo PDF, JPG o PNG de hasta 10 MB): " + strings.Join(sum.Rejected, ", "),
		})
	}
	if len(accepted) == 0 {
		return sum
	}

	q.notify.Notify(Notification{Key: uploadKey, Level: LevelInfo, Message: "Subiendo archivos…", Persist: true})
	res, err := q.api.Upload(ctx, accepted, progress)
	if res == nil {
		sum.Level = LevelError
		sum.Message = fmt.Sprintf("Error de red al subir: %v", err)
		q.notify.Notify(Notification{Key: uploadKey, Level: sum.Level, Message: sum.Message})
		return sum
	}

	sum.Result = res
	sum.Message = FormatUploadResult(res)
	switch {
	case err == nil && len(res.Errors) == 0:
		sum.Level = LevelSuccess
	case len(res.Errors) > 0:
		sum.Level = LevelWarning
	default:
		sum.Level = LevelError
	}
	q.notify.Notify(Notification{Key: uploadKey, Level: sum.Level, Message: sum.Message})
	if q.reload != nil {
		q.reload(ctx)
	}
	return sum
}

// SimulatedProgress avance lineal para quien no puede observar los bytes enviados:
// Step puntos cada Every hasta Cap; el 100 % lo marca la respuesta.
type SimulatedProgress struct {
	Step  int
	Every time.Duration
	Cap   int
}

// DefaultSimulatedProgress +8 cada 120 ms hasta 92.
func DefaultSimulatedProgress() SimulatedProgress {
	return SimulatedProgress{Step: 8, Every: 120 * time.Millisecond, Cap: 92}
}

// Steps valores que reporta Run, en orden.
func (s SimulatedProgress) Steps() []int {
	if s.Step <= 0 || s.Cap <= 0 {
		return nil
	}
	var out []int
	for p := 0; p < s.Cap; {
		p = min(p+s.Step, s.Cap)
		out = append(out, p)
	}
	return out
}

// Run reporta cada paso hasta llegar al tope o hasta que ctx se cancele.
func (s SimulatedProgress) Run(ctx context.Context, report func(pct int)) {
	t := time.NewTicker(s.Every)
	defer t.Stop()
	for _, p := range s.Steps() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report(p)
		}
	}
}
