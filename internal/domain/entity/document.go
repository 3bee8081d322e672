package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Estado estado de procesamiento del documento (OCR/extracción).
type Estado string

const (
	EstadoCola       Estado = "cola"
	EstadoPendiente  Estado = "pendiente"
	EstadoProcesando Estado = "procesando"
	EstadoProcesado  Estado = "procesado"
	EstadoValidado   Estado = "validado"
	EstadoError      Estado = "error"
)

// IsPending indica si el documento sigue en vuelo y debe consultarse por polling.
// Solo pendiente y procesando; cola no se consulta.
func (e Estado) IsPending() bool {
	return e == EstadoPendiente || e == EstadoProcesando
}

// IsDone indica un estado final exitoso.
func (e Estado) IsDone() bool {
	return e == EstadoProcesado || e == EstadoValidado
}

// Valid indica si el valor pertenece al enum.
func (e Estado) Valid() bool {
	switch e {
	case EstadoCola, EstadoPendiente, EstadoProcesando, EstadoProcesado, EstadoValidado, EstadoError:
		return true
	}
	return false
}

// Badge clase visual del estado: success, warning o error.
func (e Estado) Badge() string {
	switch {
	case e.IsDone():
		return "success"
	case e == EstadoCola || e.IsPending():
		return "warning"
	default:
		return "error"
	}
}

// SIIEstado estado de la validación en el SII. Vacío = sin validar.
type SIIEstado string

const (
	SIIEnProceso SIIEstado = "EN_PROCESO"
	SIIRecibido  SIIEstado = "RECIBIDO"
	SIIAceptado  SIIEstado = "ACEPTADO"
	SIIRechazado SIIEstado = "RECHAZADO"
	// SIINoEncontrado lo devuelve el SII cuando el track id no existe.
	SIINoEncontrado SIIEstado = "NO_ENCONTRADO"
)

// ParseSIIEstado normaliza la respuesta del proveedor ("procesando" -> EN_PROCESO).
func ParseSIIEstado(s string) SIIEstado {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "":
		return ""
	case "PROCESANDO", "EN PROCESO", "EN_PROCESO":
		return SIIEnProceso
	default:
		return SIIEstado(v)
	}
}

// InProgress indica que el SII aún no resuelve.
func (s SIIEstado) InProgress() bool {
	return s == SIIEnProceso || s == SIIRecibido
}

// Tipos de documento tributario.
const (
	TipoFacturaAfecta = "factura_afecta"
	TipoFacturaExenta = "factura_exenta"
	TipoBoletaAfecta  = "boleta_afecta"
	TipoBoletaExenta  = "boleta_exenta"
	TipoNotaCredito   = "nota_credito"
	TipoDesconocido   = "desconocido"
)

// Origen de carga del documento.
const (
	OrigenManual = "manual"
	OrigenEmail  = "email"
)

// Document representa un documento tributario subido por una empresa.
// Los montos son opcionales: se completan al terminar la extracción.
type Document struct {
	ID        int64
	EmpresaID string
	SubidoPor string

	TipoDocumento        string
	Folio                string
	RutProveedor         string
	RazonSocialProveedor string
	FechaEmision         *time.Time

	MontoNeto   decimal.NullDecimal
	MontoExento decimal.NullDecimal
	IVA         decimal.NullDecimal
	Total       decimal.NullDecimal

	Estado Estado

	ValidadoSII   bool
	SIIEstado     SIIEstado
	SIITrackID    string
	SIIGlosa      string
	SIIValidadoEn *time.Time

	ArchivoKey    string // clave en el storage
	NombreArchivo string
	HashSHA256    string
	MimeType      string
	TamanoBytes   int64
	Paginas       int
	Origen        string

	CreadoEn      time.Time
	ActualizadoEn time.Time
}

// DocumentFilter criterios de listado ya normalizados.
type DocumentFilter struct {
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	TipoPrefix string   // coincide por prefijo (factura_, boleta)
	TipoExact  string   // coincide exacto (nota_credito)
	Estados    []Estado // vacío = todos
	Limit      int
	Offset     int
}

// DocumentSummary conteos para el dashboard de documentos.
type DocumentSummary struct {
	PorEstado    map[Estado]int
	PorTipo      map[string]int
	TotalMes     decimal.Decimal
	CantMes      int
	SIIPorEstado map[SIIEstado]int
}
