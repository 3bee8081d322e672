package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

func nullDec(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func fmtDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ToRow convierte la entidad en la fila que consume la tabla.
func ToRow(d *entity.Document, urlFor func(string) string) dto.DocumentRow {
	row := dto.DocumentRow{
		ID:                   d.ID,
		FechaEmision:         fmtDate(d.FechaEmision),
		TipoDocumento:        d.TipoDocumento,
		Folio:                d.Folio,
		RutProveedor:         d.RutProveedor,
		RazonSocialProveedor: d.RazonSocialProveedor,
		MontoNeto:            nullDec(d.MontoNeto),
		MontoExento:          nullDec(d.MontoExento),
		IVA:                  nullDec(d.IVA),
		Total:                nullDec(d.Total),
		Estado:               string(d.Estado),
		ValidadoSII:          d.ValidadoSII,
		SIITrackID:           d.SIITrackID,
	}
	if d.SIIEstado != "" {
		s := string(d.SIIEstado)
		row.SIIEstado = &s
	}
	if urlFor != nil && d.ArchivoKey != "" {
		row.ArchivoURL = urlFor(d.ArchivoKey)
	}
	return row
}

// ToDetail convierte la entidad en el registro completo del modal.
func ToDetail(d *entity.Document, urlFor func(string) string) dto.DocumentDetail {
	det := dto.DocumentDetail{
		DocumentRow:   ToRow(d, urlFor),
		SIIGlosa:      d.SIIGlosa,
		NombreArchivo: d.NombreArchivo,
		HashSHA256:    d.HashSHA256,
		MimeType:      d.MimeType,
		TamanoBytes:   d.TamanoBytes,
		Paginas:       d.Paginas,
		Origen:        d.Origen,
		CreadoEn:      d.CreadoEn.Format(time.RFC3339),
	}
	if d.SIIValidadoEn != nil {
		det.SIIValidadoEn = d.SIIValidadoEn.Format(time.RFC3339)
	}
	return det
}
