package entity

import "time"

// Endpoints SII trazados.
const (
	SIIEndpointValidarDTE = "validar_dte"
	SIIEndpointEstadoDTE  = "estado_dte"
)

// SIITransaction traza de una llamada al SII (request/response en JSON).
type SIITransaction struct {
	ID              int64
	EmpresaID       string
	DocumentoID     int64
	Endpoint        string
	TrackID         string
	RequestPayload  []byte
	ResponsePayload []byte
	Estado          string
	OK              bool
	StatusCode      int
	CreatedAt       time.Time
}
