package dto

import "github.com/shopspring/decimal"

// DocumentFilterQuery parámetros del listado GET /api/v1/documentos/.
// Se aceptan los alias del front antiguo (from/to/type/status, date_from/date_to).
type DocumentFilterQuery struct {
	Search    string `query:"search"`
	DateFrom  string `query:"dateFrom"`
	DateTo    string `query:"dateTo"`
	DocType   string `query:"docType"`
	DocStatus string `query:"docStatus"`
}

// DocumentRow fila de la tabla de documentos (listado y progress-batch).
// Los montos son null mientras la extracción no termina.
type DocumentRow struct {
	ID                   int64            `json:"id"`
	FechaEmision         string           `json:"fecha_emision"`
	TipoDocumento        string           `json:"tipo_documento"`
	Folio                string           `json:"folio"`
	RutProveedor         string           `json:"rut_proveedor"`
	RazonSocialProveedor string           `json:"razon_social_proveedor"`
	MontoNeto            *decimal.Decimal `json:"monto_neto"`
	MontoExento          *decimal.Decimal `json:"monto_exento"`
	IVA                  *decimal.Decimal `json:"iva"`
	Total                *decimal.Decimal `json:"total"`
	Estado               string           `json:"estado"`
	ValidadoSII          bool             `json:"validado_sii"`
	SIIEstado            *string          `json:"sii_estado"`
	SIITrackID           string           `json:"sii_track_id,omitempty"`
	ArchivoURL           string           `json:"archivo_url,omitempty"`
}

// DocumentDetail registro completo GET /api/v1/documentos/{id}/.
type DocumentDetail struct {
	DocumentRow
	SIIGlosa      string `json:"sii_glosa,omitempty"`
	SIIValidadoEn string `json:"sii_validado_en,omitempty"`
	NombreArchivo string `json:"nombre_archivo"`
	HashSHA256    string `json:"hash_sha256"`
	MimeType      string `json:"mime_type"`
	TamanoBytes   int64  `json:"tamano_bytes"`
	Paginas       int    `json:"paginas,omitempty"`
	Origen        string `json:"origen"`
	CreadoEn      string `json:"creado_en"`
}

// DocumentListResponse respuesta del listado.
type DocumentListResponse struct {
	Results []DocumentRow `json:"results"`
	Count   int           `json:"count"`
}

// ProgressBatchResponse respuesta de GET /api/v1/documentos/progress-batch/?ids=1,2,3.
type ProgressBatchResponse struct {
	OK         bool          `json:"ok"`
	Documentos []DocumentRow `json:"documentos"`
}

// ProgressResponse respuesta de GET /api/v1/documentos/{id}/progress/.
type ProgressResponse struct {
	OK        bool        `json:"ok"`
	Documento DocumentRow `json:"documento"`
}

// UploadResult resultado agregado de POST /api/v1/documentos/ (multipart files[]).
type UploadResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
	IDs     []int64  `json:"ids,omitempty"`
}

// DocumentSummaryResponse respuesta de GET /api/v1/documentos/resumen/.
type DocumentSummaryResponse struct {
	PorEstado    map[string]int  `json:"por_estado"`
	PorTipo      map[string]int  `json:"por_tipo"`
	PorSIIEstado map[string]int  `json:"por_sii_estado"`
	Pendientes   int             `json:"pendientes"`
	TotalMes     decimal.Decimal `json:"total_mes"`
	CantidadMes  int             `json:"cantidad_mes"`
	MesLabel     string          `json:"mes_label"`
}
