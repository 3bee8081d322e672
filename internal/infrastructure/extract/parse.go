package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

var (
	rutRE    = regexp.MustCompile(`(?:^|[^\w.])(\d{1,2}\.?(?:\d{3}\.)?\d{3}-[\dkK])(?:$|[^\w])`)
	folioRE  = regexp.MustCompile(`(?i)(?:FOLIO|Nº|N°|No\.?|Nro\.?|FOL\.?)[\s:]*([0-9]{3,})`)
	fechaRE  = regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{4}[/.-]\d{1,2}[/.-]\d{1,2})\b`)
	fechaTxt = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:de|del|-|/)?\s*([a-záéíóúüñ.]{3,})\.?\s*(?:de|del|-|/)?\s*(\d{2,4})\b`)
	montoRE  = regexp.MustCompile(`\$?\s*(-?[0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	ivaTasa  = regexp.MustCompile(`IVA[^0-9%]*(\d{1,2})\s*%`)
	senorRE  = regexp.MustCompile(`\bSE[ÑN]OR(?:ES)?\b`)
	tipoRE   = regexp.MustCompile(`\b(FACTURA|BOLETA|NOTA)\b`)
	provRE   = regexp.MustCompile(`(?i)\bRAZ[ÓO]N\s+SOCIAL\b|\bSE[ÑN]OR(?:ES)?\b|\bPROVEEDOR(?:A)?\b|\bEMISOR\b|\bVENDEDOR\b`)
	noNombre = regexp.MustCompile(`(?i)\b(FACTURA|BOLETA|NOTA|RUT|FOLIO|SII|ELECTR[ÓO]NICA)\b`)
)

// etiquetas de montos, en orden de búsqueda.
var labelsMontos = []struct {
	campo string
	re    *regexp.Regexp
}{
	{"neto", regexp.MustCompile(`\b(NETO|AFECTO|SUBTOTAL)\b`)},
	{"exento", regexp.MustCompile(`\bEXENTO\b`)},
	{"iva", regexp.MustCompile(`\bIVA\b`)},
	{"total", regexp.MustCompile(`\bTOTAL(?:\s+A\s+PAGAR|\s+PAGO)?\b`)},
}

// palabras clave por tipo; lo más específico primero.
var tiposPalabras = []struct {
	tipo     string
	palabras []string
}{
	{entity.TipoNotaCredito, []string{"NOTA DE CRÉDITO", "NOTA DE CREDITO", "NC ELECTRÓNICA", "NOTA CREDITO"}},
	{entity.TipoFacturaExenta, []string{"FACTURA EXENTA", "FACTURA NO AFECTA"}},
	{entity.TipoBoletaExenta, []string{"BOLETA EXENTA"}},
	{entity.TipoFacturaAfecta, []string{"FACTURA ELECTRÓNICA", "FACTURA ELECTRONICA", "FACTURA"}},
	{entity.TipoBoletaAfecta, []string{"BOLETA ELECTRÓNICA", "BOLETA ELECTRONICA", "BOLETA"}},
}

var meses = map[string]time.Month{
	"enero": 1, "ene": 1, "febrero": 2, "feb": 2, "marzo": 3, "mar": 3,
	"abril": 4, "abr": 4, "mayo": 5, "may": 5, "junio": 6, "jun": 6,
	"julio": 7, "jul": 7, "agosto": 8, "ago": 8,
	"septiembre": 9, "setiembre": 9, "sep": 9, "set": 9,
	"octubre": 10, "oct": 10, "noviembre": 11, "nov": 11, "diciembre": 12, "dic": 12,
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ParseText extrae tipo, RUT y razón social del proveedor, folio, fecha y montos
// desde el texto plano de un documento tributario chileno.
func ParseText(text string) *documents.Extraction {
	raw := normalizeText(text)
	up := strings.ToUpper(raw)

	ex := &documents.Extraction{TipoDocumento: guessTipo(up)}

	if r := selectProveedorRut(raw, up); r != "" {
		ex.RutProveedor = rut.Format(r)
	}
	if m := folioRE.FindStringSubmatch(raw); m != nil {
		ex.Folio = m[1]
	}
	ex.FechaEmision = firstDate(raw)
	ex.RazonSocialProveedor = proveedor(strings.Split(raw, "\n"), up, ex.RutProveedor)

	neto, exento, iva, total := parseMontos(raw, ex.TipoDocumento, guessIVA(up))
	ex.MontoNeto, ex.MontoExento, ex.IVA, ex.Total = neto, exento, iva, total
	return ex
}

func normalizeText(s string) string {
	r := strings.NewReplacer(
		"\u00a0", " ", "\u2007", " ", "\u202f", " ",
		"\u2212", "-", "\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-",
		"\f", "\n", "\r\n", "\n",
		" :", ":",
	)
	return r.Replace(s)
}

func guessTipo(up string) string {
	for _, t := range tiposPalabras {
		for _, p := range t.palabras {
			if strings.Contains(up, p) {
				return t.tipo
			}
		}
	}
	return entity.TipoDesconocido
}

func guessIVA(up string) decimal.Decimal {
	if m := ivaTasa.FindStringSubmatch(up); m != nil {
		if d, err := decimal.NewFromString(m[1]); err == nil {
			return d
		}
	}
	return decimal.NewFromInt(19)
}

// selectProveedorRut prefiere un RUT válido ubicado antes del bloque SEÑOR(ES) (cliente)
// y por encima del título del documento; entre varios, el más arriba.
func selectProveedorRut(raw, up string) string {
	type cand struct {
		rut string
		pos int
	}
	var cands []cand
	for _, m := range rutRE.FindAllStringSubmatchIndex(raw, -1) {
		r := raw[m[2]:m[3]]
		if rut.IsValid(r) {
			cands = append(cands, cand{r, m[2]})
		}
	}
	if len(cands) == 0 {
		return ""
	}
	filter := func(keep func(c cand) bool) {
		var out []cand
		for _, c := range cands {
			if keep(c) {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			cands = out
		}
	}
	if loc := senorRE.FindStringIndex(up); loc != nil {
		filter(func(c cand) bool { return c.pos < loc[0] })
	}
	if loc := tipoRE.FindStringIndex(up); loc != nil {
		filter(func(c cand) bool { return c.pos <= loc[0] })
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].pos < cands[j].pos })
	return cands[0].rut
}

func firstDate(raw string) *time.Time {
	if m := fechaRE.FindStringSubmatch(raw); m != nil {
		if t := parseNumericDate(m[1]); t != nil {
			return t
		}
	}
	for _, m := range fechaTxt.FindAllStringSubmatch(raw, -1) {
		if t := parseTextDate(m[1], m[2], m[3]); t != nil {
			return t
		}
	}
	return nil
}

func parseNumericDate(s string) *time.Time {
	s = strings.NewReplacer("/", "-", ".", "-").Replace(s)
	for _, layout := range []string{"02-01-2006", "2-1-2006", "02-01-06", "2-1-06", "2006-01-02", "2006-1-2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseTextDate(d, m, y string) *time.Time {
	month, ok := meses[strings.Trim(clfmt.Fold(m), ". ")]
	if !ok {
		return nil
	}
	day, year := atoi(d), atoi(y)
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return nil
	}
	return &t
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// proveedor busca la razón social: primero por etiqueta, luego cerca del RUT y por último
// en las líneas en mayúscula del encabezado. Nunca mira bajo SEÑOR(ES).
func proveedor(lines []string, up, rutProv string) string {
	searchRange := lines
	if loc := senorRE.FindStringIndex(up); loc != nil {
		acc := 0
		for i, ln := range lines {
			acc += len(ln) + 1
			if loc[0] < acc {
				if i > 0 {
					searchRange = lines[:i]
				}
				break
			}
		}
	}

	for i, ln := range searchRange {
		if !provRE.MatchString(ln) {
			continue
		}
		parts := strings.Split(ln, ":")
		c := strings.TrimSpace(parts[len(parts)-1])
		if len(parts) == 1 {
			c = ""
		}
		if c == "" && i+1 < len(searchRange) {
			c = strings.TrimSpace(searchRange[i+1])
		}
		c = strings.Join(strings.Fields(strings.NewReplacer("*", " ", "#", " ", "|", " ").Replace(c)), " ")
		if len(c) > 2 {
			return prettyName(c)
		}
	}

	if rutProv != "" {
		clean := strings.ReplaceAll(rutProv, ".", "")
		for i, ln := range searchRange {
			if !strings.Contains(strings.ReplaceAll(ln, ".", ""), clean) {
				continue
			}
			for j := max(0, i-3); j <= i; j++ {
				c := strings.TrimSpace(searchRange[j])
				if len(c) > 3 && !noNombre.MatchString(c) {
					return prettyName(c)
				}
			}
			break
		}
	}

	for _, ln := range searchRange[:min(15, len(searchRange))] {
		c := strings.TrimSpace(ln)
		if len(c) >= 6 && (c == strings.ToUpper(c) || strings.Contains(c, " SPA") || strings.Contains(c, " LTDA") || strings.Contains(c, " S.A")) {
			if !noNombre.MatchString(c) && mostlyLetters(c) {
				return prettyName(c)
			}
		}
	}
	return ""
}

// mostlyLetters descarta líneas de montos o códigos ("TOTAL: 11.900").
func mostlyLetters(s string) bool {
	letters, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return total > 0 && letters*4 >= total*3
}

var sufijos = regexp.MustCompile(`(?i)\b(spa|ltda|eirl|e\.i\.r\.l|s\.a\.?)(\W|$)`)

// prettyName quita un RUT pegado y pasa a título los nombres en mayúscula (Comercial Sur SPA).
func prettyName(s string) string {
	s = rutRE.ReplaceAllString(" "+s+" ", " ")
	s = strings.Trim(strings.Join(strings.Fields(s), " "), " -:|")
	if s != strings.ToUpper(s) {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	out := strings.Join(words, " ")
	return sufijos.ReplaceAllStringFunc(out, strings.ToUpper)
}

func amountsIn(line string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range montoRE.FindAllStringSubmatch(line, -1) {
		s := strings.ReplaceAll(strings.ReplaceAll(m[1], ".", ""), ",", ".")
		if d, err := decimal.NewFromString(s); err == nil {
			out = append(out, d)
		}
	}
	return out
}

func maxAbs(ds []decimal.Decimal) decimal.Decimal {
	best := ds[0]
	for _, d := range ds[1:] {
		if d.Abs().GreaterThan(best.Abs()) {
			best = d
		}
	}
	return best
}

// parseMontos busca cada monto por etiqueta (mayor valor absoluto de la línea; si la línea
// no trae cifras, de las dos siguientes), deriva los faltantes con la tasa de IVA y ajusta signo para notas de crédito.
func parseMontos(raw, tipo string, tasa decimal.Decimal) (neto, exento, iva, total decimal.NullDecimal) {
	lines := strings.Split(raw, "\n")
	found := map[string]*decimal.Decimal{}
	for _, l := range labelsMontos {
		for idx, ln := range lines {
			if !l.re.MatchString(strings.ToUpper(ln)) {
				continue
			}
			cands := amountsIn(lines[idx])
			for j := idx + 1; len(cands) == 0 && j < min(idx+3, len(lines)); j++ {
				cands = amountsIn(lines[j])
			}
			if len(cands) > 0 {
				v := maxAbs(cands)
				found[l.campo] = &v
			}
			break
		}
	}
	if found["total"] == nil {
		if all := amountsIn(raw); len(all) > 0 {
			v := maxAbs(all)
			found["total"] = &v
		}
	}

	zero := decimal.Zero
	ex := zero
	if found["exento"] != nil {
		ex = *found["exento"]
	}
	if t := found["total"]; t != nil && found["iva"] == nil && found["neto"] != nil {
		posible := t.Sub(*found["neto"]).Sub(ex)
		if posible.Abs().LessThan(one) {
			posible = found["neto"].Mul(tasa).Div(hundred).Round(0)
		}
		if !posible.IsZero() {
			found["iva"] = &posible
		}
	}
	if t := found["total"]; t != nil && found["neto"] == nil {
		if found["iva"] != nil {
			n := t.Sub(ex).Sub(*found["iva"])
			found["neto"] = &n
		} else {
			n := t.Sub(ex).Div(one.Add(tasa.Div(hundred))).Round(0)
			found["neto"] = &n
			if i := t.Sub(ex).Sub(n); !i.IsZero() {
				found["iva"] = &i
			}
		}
	}

	if strings.HasPrefix(tipo, entity.TipoNotaCredito) {
		for _, k := range []string{"neto", "exento", "iva", "total"} {
			if v := found[k]; v != nil && v.IsPositive() {
				n := v.Neg()
				found[k] = &n
			}
		}
	}
	for _, k := range []string{"neto", "iva", "total"} {
		if v := found[k]; v != nil {
			r := v.Round(0)
			found[k] = &r
		}
	}
	if t := found["total"]; t != nil {
		sum := zero
		for _, k := range []string{"neto", "exento", "iva"} {
			if v := found[k]; v != nil {
				sum = sum.Add(*v)
			}
		}
		if diff := t.Sub(sum); !diff.IsZero() && diff.Abs().LessThanOrEqual(decimal.NewFromInt(2)) {
			base := zero
			if found["iva"] != nil {
				base = *found["iva"]
			}
			adj := base.Add(diff).Round(0)
			found["iva"] = &adj
		}
	}

	get := func(k string) decimal.NullDecimal {
		if v := found[k]; v != nil {
			return decimal.NewNullDecimal(*v)
		}
		return decimal.NullDecimal{}
	}
	return get("neto"), get("exento"), get("iva"), get("total")
}
