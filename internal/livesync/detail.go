package livesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

// ErrNotCached el documento no está en el último listado.
var ErrNotCached = errors.New("livesync: documento fuera del listado")

type label struct {
	text  string
	group string
}

// Etiquetas por clave, en el orden en que se muestran dentro de cada grupo.
var labelOrder = []string{
	"tipo_documento", "folio", "rut_proveedor", "razon_social_proveedor", "nombre_proveedor", "rut_emisor", "razon_social",
	"fecha_emision", "fecha_vencimiento", "fecha_recepcion", "fecha", "creado_en", "created_at", "sii_validado_en",
	"monto_neto", "neto", "monto_exento", "exento", "iva", "total",
	"factura_afecta", "descripcion", "tasa_iva", "direccion", "comuna", "sii_glosa",
	"id", "nombre_archivo", "origen", "mime_type", "tamano_bytes", "paginas", "hash_sha256",
}

var labels = map[string]label{
	"tipo_documento":         {"Tipo de Documento", "principal"},
	"folio":                  {"Folio", "principal"},
	"rut_proveedor":          {"RUT Proveedor", "principal"},
	"razon_social_proveedor": {"Razón Social", "principal"},
	"nombre_proveedor":       {"Razón Social", "principal"},
	"rut_emisor":             {"RUT Proveedor", "principal"},
	"razon_social":           {"Razón Social", "principal"},

	"fecha_emision":     {"Fecha Emisión", "fechas"},
	"fecha_vencimiento": {"Fecha Vencimiento", "fechas"},
	"fecha_recepcion":   {"Fecha Recepción", "fechas"},
	"fecha":             {"Fecha Emisión", "fechas"},
	"creado_en":         {"Fecha Creación", "fechas"},
	"created_at":        {"Fecha Creación", "fechas"},
	"sii_validado_en":   {"Validado en SII", "fechas"},

	"monto_neto":   {"Neto", "montos"},
	"neto":         {"Neto", "montos"},
	"monto_exento": {"Exento", "montos"},
	"exento":       {"Exento", "montos"},
	"iva":          {"IVA", "montos"},
	"total":        {"Total", "montos"},

	"factura_afecta": {"Factura Afecta", "detalle"},
	"descripcion":    {"Descripción", "detalle"},
	"tasa_iva":       {"Tasa IVA", "detalle"},
	"direccion":      {"Dirección", "detalle"},
	"comuna":         {"Comuna", "detalle"},
	"sii_glosa":      {"Glosa SII", "detalle"},

	"id":             {"ID Interno", "meta"},
	"nombre_archivo": {"Nombre Archivo", "meta"},
	"origen":         {"Origen de Carga", "meta"},
	"mime_type":      {"Tipo de Archivo", "meta"},
	"tamano_bytes":   {"Tamaño (bytes)", "meta"},
	"paginas":        {"Páginas", "meta"},
	"hash_sha256":    {"SHA-256", "meta"},
}

// Claves que se muestran como pills o acciones, no en las secciones.
var excludedKeys = map[string]bool{
	"estado": true, "sii_estado": true, "sii_track_id": true, "validado_sii": true,
	"archivo": true, "archivo_url": true,
}

var moneyKeys = map[string]bool{
	"monto_neto": true, "neto": true, "monto_exento": true, "exento": true, "iva": true, "total": true,
}

var groups = []struct{ id, title string }{
	{"principal", "Información Principal"},
	{"montos", "Montos"},
	{"fechas", "Fechas"},
	{"detalle", "Detalles Adicionales"},
	{"meta", "Metadata"},
	{"otros", "Otros Datos"},
}

// KV par etiqueta/valor ya formateado.
type KV struct {
	Label string
	Value string
}

// Section grupo del detalle. Title vacío para la sección principal.
type Section struct {
	ID    string
	Title string
	Items []KV
}

// Pill etiqueta de estado con su tono: ok, warn o err.
type Pill struct {
	Text string
	Kind string
}

// DetailView contenido del modal de detalle.
type DetailView struct {
	ID         int64
	Title      string
	Sections   []Section
	Estado     Pill
	SII        Pill
	ArchivoURL string
	TrackID    string
}

// BuildDetail agrupa las claves del registro en secciones. Claves nulas, vacías o
// excluidas se omiten; dentro de un grupo, una etiqueta repetida se muestra una vez.
func BuildDetail(doc map[string]any) DetailView {
	byGroup := map[string][]KV{}
	seen := map[string]bool{}

	add := func(key string, v any) {
		if v == nil || v == "" || excludedKeys[key] {
			return
		}
		lb, ok := labels[key]
		if !ok {
			lb = label{text: otherLabel(key), group: "otros"}
		}
		if seen[lb.group+"\x00"+lb.text] {
			return
		}
		seen[lb.group+"\x00"+lb.text] = true
		byGroup[lb.group] = append(byGroup[lb.group], KV{Label: lb.text, Value: FormatValue(key, v)})
	}

	for _, k := range labelOrder {
		if v, ok := doc[k]; ok {
			add(k, v)
		}
	}
	var rest []string
	for k := range doc {
		if _, ok := labels[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k, doc[k])
	}

	dv := DetailView{
		Title:      detailTitle(doc),
		Estado:     estadoPill(str(doc["estado"])),
		SII:        siiPill(doc),
		ArchivoURL: str(doc["archivo_url"]),
		TrackID:    str(doc["sii_track_id"]),
	}
	if id, ok := doc["id"].(float64); ok {
		dv.ID = int64(id)
	}
	for _, g := range groups {
		items := byGroup[g.id]
		if len(items) == 0 {
			continue
		}
		title := g.title
		if g.id == "principal" {
			title = ""
		}
		dv.Sections = append(dv.Sections, Section{ID: g.id, Title: title, Items: items})
	}
	return dv
}

func detailTitle(doc map[string]any) string {
	tipo := str(doc["tipo_documento"])
	if tipo == "" {
		tipo = str(doc["tipo"])
	}
	if tipo == "" {
		tipo = "Documento"
	}
	folio := str(doc["folio"])
	if folio == "" {
		folio = str(doc["id"])
	}
	return fmt.Sprintf("%s #%s", tipo, folio)
}

func estadoPill(estado string) Pill {
	switch estado {
	case "":
		return Pill{}
	case "procesado", "validado":
		return Pill{Text: "Estado: " + estado, Kind: "ok"}
	case "cola", "pendiente", "procesando":
		return Pill{Text: "Estado: " + estado, Kind: "warn"}
	default:
		return Pill{Text: "Estado: " + estado, Kind: "err"}
	}
}

func siiPill(doc map[string]any) Pill {
	_, hasV := doc["validado_sii"]
	_, hasE := doc["sii_estado"]
	if !hasV && !hasE {
		return Pill{}
	}
	est := strings.ToUpper(str(doc["sii_estado"]))
	validado, _ := doc["validado_sii"].(bool)
	switch est {
	case "ACEPTADO":
		return Pill{Text: "SII: aceptado", Kind: "ok"}
	case "RECHAZADO":
		return Pill{Text: "SII: rechazado", Kind: "err"}
	case "EN_PROCESO", "RECIBIDO":
		return Pill{Text: "SII: validando…", Kind: "warn"}
	}
	if validado {
		return Pill{Text: clfmt.OrDash(est), Kind: "ok"}
	}
	return Pill{Text: "No validado SII", Kind: "warn"}
}

// otherLabel "numero_cuenta" -> "Numero Cuenta".
func otherLabel(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[n:]
	}
	return strings.Join(words, " ")
}

var isoDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(T[\d:.]+(Z|[+-]\d{2}:\d{2})?)?$`)

// FormatValue formatea un valor del detalle: montos en CLP, números es-CL,
// fechas dd-mm-aaaa, booleanos Sí/No y objetos como JSON indentado.
func FormatValue(key string, v any) string {
	switch x := v.(type) {
	case nil:
		return clfmt.Placeholder
	case bool:
		if x {
			return "Sí"
		}
		return "No"
	case float64:
		d := decimal.NewFromFloat(x)
		return formatNumber(key, d, d.String())
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return x.String()
		}
		return formatNumber(key, d, x.String())
	case string:
		return formatString(key, x)
	default:
		raw, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}

func formatNumber(key string, d decimal.Decimal, raw string) string {
	switch {
	case moneyKeys[key]:
		return clfmt.Money(&d)
	case key == "folio" || key == "id":
		return raw
	default:
		return clfmt.Number(d)
	}
}

func formatString(key, s string) string {
	if s == "" {
		return clfmt.Placeholder
	}
	if moneyKeys[key] {
		if d, err := decimal.NewFromString(s); err == nil {
			return clfmt.Money(&d)
		}
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		if m[2] == "" {
			if t, err := time.Parse("2006-01-02", m[1]); err == nil {
				return clfmt.Date(t)
			}
		} else if t, err := parseISO(s); err == nil {
			return t.Format("02-01-2006 15:04")
		}
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		var buf bytes.Buffer
		if json.Indent(&buf, []byte(s), "", "  ") == nil {
			return buf.String()
		}
	}
	return s
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha %q", s)
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).String()
	default:
		return fmt.Sprint(x)
	}
}

// rowMap convierte la fila cacheada a mapa para fusionarla con el registro completo.
func rowMap(r client.Row) map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"id": float64(r.ID)}
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// DetailLoader abre el detalle desde el cache y lo completa con el servidor.
type DetailLoader struct {
	api   API
	store *Store
}

// NewDetailLoader construye el loader de detalle.
func NewDetailLoader(api API, store *Store) *DetailLoader {
	return &DetailLoader{api: api, store: store}
}

// Cached arma el detalle solo con lo que hay en cache (lo primero que se pinta).
func (d *DetailLoader) Cached(id int64) (DetailView, error) {
	if full, ok := d.store.Detail(id); ok {
		return BuildDetail(full), nil
	}
	row, ok := d.store.Get(id)
	if !ok {
		return DetailView{}, ErrNotCached
	}
	return BuildDetail(rowMap(row)), nil
}

// Open devuelve el detalle completo. Si el cache ya trae nombre_archivo no consulta;
// si la consulta falla devuelve lo cacheado.
func (d *DetailLoader) Open(ctx context.Context, id int64) (DetailView, error) {
	if full, ok := d.store.Detail(id); ok && str(full["nombre_archivo"]) != "" {
		return BuildDetail(full), nil
	}
	row, ok := d.store.Get(id)
	if !ok {
		return DetailView{}, ErrNotCached
	}
	merged := rowMap(row)
	full, err := d.api.Get(ctx, id)
	if err != nil {
		return BuildDetail(merged), nil
	}
	for k, v := range full {
		merged[k] = v
	}
	d.store.SetDetail(id, merged)
	return BuildDetail(merged), nil
}
