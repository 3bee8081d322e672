// Package clfmt formatea montos, números y fechas a la usanza es-CL
// y pliega acentos para búsquedas.
package clfmt

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder es el texto usado cuando no hay valor.
const Placeholder = "—"

// Number agrupa miles con punto y redondea a entero: 1234567.4 -> "1.234.567".
func Number(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Money formatea un monto CLP sin decimales: "$1.234.567". nil -> "—".
func Money(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	if d.IsNegative() {
		return "-$" + Number(d.Neg())
	}
	return "$" + Number(*d)
}

// Date devuelve dd-mm-aaaa; la fecha cero se muestra como "—".
func Date(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format("02-01-2006")
}

// OrDash devuelve s o el marcador si está vacío.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// Fold pasa a minúsculas y elimina marcas diacríticas: "Razón Ñuñoa" -> "razon nunoa".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
