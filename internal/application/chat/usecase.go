// Package chat responde el chat de ayuda: reglas locales primero, el asistente externo después.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/time/rate"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/application/ports"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

// MaxMessageRunes largo máximo de un mensaje (413 sobre esto).
const MaxMessageRunes = 1000

var (
	ErrMessageTooLong = errors.New("mensaje demasiado largo")
	ErrRateLimited    = errors.New("demasiadas consultas seguidas")
)

const assistantTimeout = 20 * time.Second

const systemPrompt = "Eres el asistente de soporte de SGIDT, gestión de documentos tributarios chilenos. " +
	"Responde SOLO a lo preguntado y de forma MUY breve.\n" +
	"Reglas de estilo:\n" +
	"- No uses encabezados (#).\n" +
	"- Usa a lo más 3 bullets cortos o 1 línea si cabe.\n" +
	"- Usa **negritas** solo para nombres de menús o acciones dentro de SGIDT.\n" +
	"- Si falta un dato clave, pide SOLO ese dato en 1 línea.\n" +
	"Prohibido inventar endpoints o credenciales."

const sinAsistente = "No tengo acceso al motor de IA ahora mismo. Puedo ayudarte con **carga de documentos**, " +
	"**validación SII** y **ajustes de la empresa**. ¿Puedes darme más contexto?"

// UseCase caso de uso del chat de ayuda.
type UseCase struct {
	assistant ports.Assistant // nil = solo reglas locales
	md        goldmark.Markdown
	log       zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	limiters  map[string]*userLimiter
	lastSweep time.Time
	every     time.Duration
	burst     int
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewUseCase construye el caso de uso. assistant puede ser nil.
func NewUseCase(assistant ports.Assistant, log zerolog.Logger) *UseCase {
	return &UseCase{
		assistant: assistant,
		md:        goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		log:       log,
		now:       time.Now,
		limiters:  map[string]*userLimiter{},
		every:     2 * time.Second,
		burst:     5,
	}
}

// WithRateLimit cambia la cadencia por usuario (una consulta cada every, ráfagas de burst).
func (uc *UseCase) WithRateLimit(every time.Duration, burst int) *UseCase {
	uc.every, uc.burst = every, burst
	return uc
}

func (uc *UseCase) allow(userID string) bool {
	now := uc.now()
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.sweep(now)
	l, ok := uc.limiters[userID]
	if !ok {
		l = &userLimiter{lim: rate.NewLimiter(rate.Every(uc.every), uc.burst)}
		uc.limiters[userID] = l
	}
	l.seen = now
	return l.lim.AllowN(now, 1)
}

// idleTTL tiempo tras el cual un limitador ya recuperó todo su cupo.
func (uc *UseCase) idleTTL() time.Duration {
	return max(uc.every*time.Duration(uc.burst), time.Minute)
}

// sweep descarta los limitadores inactivos; un usuario que vuelve parte con el cupo lleno.
func (uc *UseCase) sweep(now time.Time) {
	ttl := uc.idleTTL()
	if now.Sub(uc.lastSweep) < ttl {
		return
	}
	uc.lastSweep = now
	for id, l := range uc.limiters {
		if now.Sub(l.seen) >= ttl {
			delete(uc.limiters, id)
		}
	}
}

// Ask responde el mensaje del usuario.
func (uc *UseCase) Ask(ctx context.Context, userID, message string) (*dto.ChatResponse, error) {
	q := strings.TrimSpace(message)
	if utf8.RuneCountInString(q) > MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	if !uc.allow(userID) {
		return nil, ErrRateLimited
	}
	if q == "" {
		return uc.respond("¿En qué puedo ayudarte? Ejemplos: **Subir un PDF**, **Validación con SII**, **Cambiar datos de la empresa**.", ""), nil
	}

	qn := normalize(q)
	switch {
	case timeRE.MatchString(qn):
		return uc.respond(fmt.Sprintf("Son las %s.", uc.now().Format("15:04")), qn), nil
	case dateRE.MatchString(qn):
		return uc.respond(fmt.Sprintf("Hoy es %s.", uc.now().Format("02-01-2006")), qn), nil
	}
	for _, st := range smallTalk {
		if st.re.MatchString(qn) {
			return uc.respond(st.reply, qn), nil
		}
	}
	for _, r := range rules {
		for _, w := range r.words {
			if strings.Contains(qn, w) {
				return uc.respond(r.reply, qn), nil
			}
		}
	}

	if uc.assistant == nil {
		return uc.respond(sinAsistente, qn), nil
	}
	actx, cancel := context.WithTimeout(ctx, assistantTimeout)
	defer cancel()
	answer, err := uc.assistant.Answer(actx, systemPrompt, q)
	if err != nil {
		uc.log.Warn().Err(err).Msg("asistente no disponible")
		return uc.respond("Hubo un problema generando la respuesta. Intenta otra vez o usa **Ayuda → Contacto Rápido**.", qn), nil
	}
	return uc.respond(Tidy(answer), qn), nil
}

func (uc *UseCase) respond(reply, qn string) *dto.ChatResponse {
	var buf bytes.Buffer
	html := ""
	if err := uc.md.Convert([]byte(reply), &buf); err != nil {
		uc.log.Warn().Err(err).Msg("render markdown")
	} else {
		html = strings.TrimSpace(buf.String())
	}
	return &dto.ChatResponse{Reply: reply, ReplyHTML: html, Suggest: Suggest(qn, 4)}
}

// ── Reglas locales ───────────────────────────────────────────────────────────

var (
	timeRE = regexp.MustCompile(`\b(que hora|hora actual|hora (es|esta))\b`)
	dateRE = regexp.MustCompile(`\b(que fecha|fecha de hoy)\b`)
)

var smallTalk = []struct {
	re    *regexp.Regexp
	reply string
}{
	{regexp.MustCompile(`^(hola|buenas|que tal|holi)\b`), "¡Hola! ¿En qué puedo ayudarte?"},
	{regexp.MustCompile(`(gracias|muchas gracias|te agradezco)$`), "¡Con gusto! ¿Necesitas algo más?"},
	{regexp.MustCompile(`(adios|hasta luego|nos vemos)$`), "¡Hasta luego! Si surge algo, aquí estaré."},
}

var rules = []struct {
	words []string
	reply string
}{
	{[]string{"subir", "cargar", "upload", "pdf", "archivo"},
		"En **Documentos**, pulsa **Subir** y elige tu PDF o imagen (máximo **10MB**). Los duplicados se detectan por contenido."},
	{[]string{"sii", "validacion", "track"},
		"Abre el documento y pulsa **Validar SII**. Con el **Track ID** puedes pulsar **Actualizar estado** hasta que quede aceptado."},
	{[]string{"estado", "pendiente", "procesando"},
		"Los documentos pasan por **pendiente**, **procesando** y **procesado**. La tabla se actualiza sola mientras haya documentos en proceso."},
	{[]string{"empresa", "razon social", "datos empresa"},
		"Ve a **Configuración → Ajustes de la Empresa**. Completa los campos y presiona **Guardar**."},
	{[]string{"reporte", "informe", "exportar"},
		"En **Documentos**, aplica los filtros y pulsa **Reporte PDF** para descargar el listado."},
	{[]string{"roles", "permisos", "accesos", "usuarios"},
		"La gestión de usuarios y permisos está en **Configuración** del administrador."},
	{[]string{"contrasena", "clave", "password"},
		"Usa **¿Olvidaste tu contraseña?** en el login o cámbiala desde tu perfil si estás autenticado."},
	{[]string{"contacto", "soporte", "correo"},
		"Puedes escribir en este chat, usar **Contacto Rápido** o enviar un correo a **soporte@sgidt.cl**."},
}

var opciones = []string{
	"Subir un PDF",
	"Validación con SII",
	"Estado de un documento",
	"Cambiar datos de la empresa",
	"Descargar reporte PDF",
	"Contactar a soporte",
}

// Suggest ordena las sugerencias por similitud de tokens con la consulta normalizada.
func Suggest(qn string, k int) []string {
	if qn == "" {
		return append([]string(nil), opciones[:min(k, len(opciones))]...)
	}
	qt := tokens(qn)
	type scored struct {
		s     string
		score float64
		idx   int
	}
	out := make([]scored, len(opciones))
	for i, o := range opciones {
		ot := tokens(normalize(o))
		inter := 0
		for t := range qt {
			if ot[t] {
				inter++
			}
		}
		union := len(qt) + len(ot) - inter
		sc := 0.0
		if union > 0 {
			sc = float64(inter) / float64(union)
		}
		out[i] = scored{o, sc, i}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	res := make([]string, 0, k)
	for _, s := range out[:min(k, len(out))] {
		res = append(res, s.s)
	}
	return res
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalize(s string) string {
	s = nonAlnum.ReplaceAllString(clfmt.Fold(strings.TrimSpace(s)), " ")
	return strings.Join(strings.Fields(s), " ")
}

func tokens(s string) map[string]bool {
	out := map[string]bool{}
	for _, t := range strings.Fields(s) {
		if len(t) > 2 {
			out[t] = true
		}
	}
	return out
}

var (
	headingRE = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	starRE    = regexp.MustCompile(`(?m)^\s*\*\s+`)
)

// Tidy recorta la salida del modelo: sin encabezados, a lo más una línea y 3 bullets, 120 palabras.
func Tidy(text string) string {
	text = headingRE.ReplaceAllString(text, "")
	text = starRE.ReplaceAllString(text, "- ")
	var lines, bullets, others []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln == "" {
			continue
		}
		lines = append(lines, ln)
		if strings.HasPrefix(ln, "- ") {
			bullets = append(bullets, ln)
		} else {
			others = append(others, ln)
		}
	}
	if len(bullets) > 0 {
		lines = append(others[:min(1, len(others))], bullets[:min(3, len(bullets))]...)
	}
	text = strings.Join(lines, "\n")
	if words := strings.Fields(text); len(words) > 120 {
		text = strings.Join(words[:120], " ") + "…"
	}
	return text
}
