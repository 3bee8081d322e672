package dto

// SIIResult resultado de una acción SII.
// validar-sii llena TrackID/OK; estado-sii llena Estado.
type SIIResult struct {
	OK      bool   `json:"ok"`
	TrackID string `json:"track_id,omitempty"`
	Estado  string `json:"estado,omitempty"`
	Glosa   string `json:"glosa,omitempty"`
}

// SIIActionResponse envoltorio {"result": {...}}.
type SIIActionResponse struct {
	Result SIIResult `json:"result"`
}

// ContribuyenteResponse respuesta de GET /api/v1/sii/contribuyente/?rut=.
type ContribuyenteResponse struct {
	Rut                string `json:"rut"`
	RazonSocial        string `json:"razon_social"`
	ActividadPrincipal string `json:"actividad_principal"`
	Estado             string `json:"estado"`
	Cache              bool   `json:"cache"`
}
