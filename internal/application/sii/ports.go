package sii

import (
	"context"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

// DTERequest datos del documento que se envían al SII.
type DTERequest struct {
	EmisorRut    string `json:"emisor_rut"`
	ReceptorRut  string `json:"receptor_rut"`
	TipoDTE      int    `json:"tipo_dte"`
	Folio        int64  `json:"folio"`
	MontoTotal   int64  `json:"monto_total"`
	FechaEmision string `json:"fecha_emision"` // AAAA-MM-DD
}

// ValidarResult respuesta de ValidarDTE. OK=false trae la glosa de rechazo.
type ValidarResult struct {
	OK      bool   `json:"ok"`
	TrackID string `json:"track_id,omitempty"`
	Glosa   string `json:"glosa"`
}

// EstadoResult respuesta de EstadoDTE.
type EstadoResult struct {
	Estado entity.SIIEstado `json:"estado"`
	Glosa  string           `json:"glosa"`
}

// Contribuyente datos públicos de un RUT.
type Contribuyente struct {
	Rut                string `json:"rut"`
	RazonSocial        string `json:"razon_social"`
	ActividadPrincipal string `json:"actividad_principal"`
	Estado             string `json:"estado"`
}

// Provider puerto hacia el SII (mock o web service real).
type Provider interface {
	ValidarDTE(ctx context.Context, req DTERequest) (*ValidarResult, error)
	// EstadoDTE recibe también los datos del DTE: el web service del SII consulta por
	// emisor/folio/monto, el mock por track id.
	EstadoDTE(ctx context.Context, trackID string, req DTERequest) (*EstadoResult, error)
	// ConsultaContribuyente devuelve domain.ErrNotFound si el RUT no existe.
	ConsultaContribuyente(ctx context.Context, rut string) (*Contribuyente, error)
}

// TxRunner ejecuta la actualización del documento y la traza en una sola transacción.
type TxRunner interface {
	RunSII(ctx context.Context, fn func(docs repository.DocumentRepository, txs repository.SIITransactionRepository) error) error
}
