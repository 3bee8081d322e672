package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field valor opcional de un parche: Set indica que la clave vino en el JSON
// (aunque sea null). Una clave ausente no debe tocar la celda.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some construye un Field presente.
func Some[T any](v T) Field[T] { return Field[T]{Set: true, Value: v} }

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Row fila de la tabla tal como la entrega el listado.
type Row struct {
	ID                   int64               `json:"id"`
	FechaEmision         string              `json:"fecha_emision"`
	TipoDocumento        string              `json:"tipo_documento"`
	Folio                string              `json:"folio"`
	RutProveedor         string              `json:"rut_proveedor"`
	RazonSocialProveedor string              `json:"razon_social_proveedor"`
	MontoNeto            decimal.NullDecimal `json:"monto_neto"`
	MontoExento          decimal.NullDecimal `json:"monto_exento"`
	IVA                  decimal.NullDecimal `json:"iva"`
	Total                decimal.NullDecimal `json:"total"`
	Estado               string              `json:"estado"`
	ValidadoSII          bool                `json:"validado_sii"`
	SIIEstado            string              `json:"sii_estado"`
	SIITrackID           string              `json:"sii_track_id"`
	ArchivoURL           string              `json:"archivo_url"`
}

// IsPending indica si la fila sigue en vuelo (pendiente o procesando).
func (r Row) IsPending() bool {
	return r.Estado == "pendiente" || r.Estado == "procesando"
}

// RowPatch actualización parcial de progress-batch. Solo ID es obligatorio.
type RowPatch struct {
	ID                   int64                      `json:"id"`
	FechaEmision         Field[string]              `json:"fecha_emision"`
	TipoDocumento        Field[string]              `json:"tipo_documento"`
	Folio                Field[string]              `json:"folio"`
	RutProveedor         Field[string]              `json:"rut_proveedor"`
	RazonSocialProveedor Field[string]              `json:"razon_social_proveedor"`
	MontoNeto            Field[decimal.NullDecimal] `json:"monto_neto"`
	MontoExento          Field[decimal.NullDecimal] `json:"monto_exento"`
	IVA                  Field[decimal.NullDecimal] `json:"iva"`
	Total                Field[decimal.NullDecimal] `json:"total"`
	Estado               Field[string]              `json:"estado"`
	ValidadoSII          Field[bool]                `json:"validado_sii"`
	SIIEstado            Field[string]              `json:"sii_estado"`
	SIITrackID           Field[string]              `json:"sii_track_id"`
}

// Apply aplica el parche sobre r y devuelve los nombres de las celdas que cambiaron.
// Un estado vacío no pisa el anterior.
func (p RowPatch) Apply(r *Row) []string {
	var changed []string
	str := func(name string, f Field[string], dst *string) {
		if f.Set && f.Value != *dst {
			*dst = f.Value
			changed = append(changed, name)
		}
	}
	dec := func(name string, f Field[decimal.NullDecimal], dst *decimal.NullDecimal) {
		if !f.Set || sameAmount(f.Value, *dst) {
			return
		}
		*dst = f.Value
		changed = append(changed, name)
	}

	str("fecha_emision", p.FechaEmision, &r.FechaEmision)
	str("tipo_documento", p.TipoDocumento, &r.TipoDocumento)
	str("folio", p.Folio, &r.Folio)
	str("rut_proveedor", p.RutProveedor, &r.RutProveedor)
	str("razon_social_proveedor", p.RazonSocialProveedor, &r.RazonSocialProveedor)
	dec("monto_neto", p.MontoNeto, &r.MontoNeto)
	dec("monto_exento", p.MontoExento, &r.MontoExento)
	dec("iva", p.IVA, &r.IVA)
	dec("total", p.Total, &r.Total)
	if p.Estado.Value != "" {
		str("estado", p.Estado, &r.Estado)
	}
	if p.ValidadoSII.Set && p.ValidadoSII.Value != r.ValidadoSII {
		r.ValidadoSII = p.ValidadoSII.Value
		changed = append(changed, "validado_sii")
	}
	str("sii_estado", p.SIIEstado, &r.SIIEstado)
	str("sii_track_id", p.SIITrackID, &r.SIITrackID)
	return changed
}

func sameAmount(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// joinIDs serializa ids como "1,2,3".
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
