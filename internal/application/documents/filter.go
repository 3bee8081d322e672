package documents

import (
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// FilterParams valores crudos de la query; cada campo acepta varios alias.
type FilterParams struct {
	Search string
	From   string // from | date_from | dateFrom
	To     string // to | date_to | dateTo
	Type   string // type | docType
	Status string // status | docStatus
}

// FirstNonEmpty devuelve el primer alias con valor.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

const dateLayout = "2006-01-02"

// ParseFilter traduce los parámetros del front al filtro del repositorio.
//
//	type:   factura -> prefijo "factura_", boleta -> prefijo "boleta", nc/nota_credito -> exacto
//	status: cola|pendiente -> {pendiente, procesando}, procesado|validado -> procesado, error -> error
//
// Fechas ilegibles y valores desconocidos de type/status se ignoran.
func ParseFilter(p FilterParams) entity.DocumentFilter {
	f := entity.DocumentFilter{
		Search:   strings.TrimSpace(p.Search),
		DateFrom: parseDate(p.From),
		DateTo:   parseDate(p.To),
	}

	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "factura":
		f.TipoPrefix = "factura_"
	case "boleta":
		f.TipoPrefix = "boleta"
	case "nc", "nota_credito":
		f.TipoExact = entity.TipoNotaCredito
	}

	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "cola", "pendiente":
		f.Estados = []entity.Estado{entity.EstadoPendiente, entity.EstadoProcesando}
	case "procesado", "validado":
		f.Estados = []entity.Estado{entity.EstadoProcesado, entity.EstadoValidado}
	case "error":
		f.Estados = []entity.Estado{entity.EstadoError}
	}
	return f
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)] // acepta "2024-05-01T00:00:00"
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// ParseIDs interpreta "1,2,3"; descarta silenciosamente lo que no sea un entero positivo
// y los repetidos.
func ParseIDs(raw string) []int64 {
	var out []int64
	seen := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !isDigits(part) {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
