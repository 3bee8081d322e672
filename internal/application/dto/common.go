package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetailResponse error con la forma {"detail": "..."} que el front muestra tal cual.
type DetailResponse struct {
	Detail string `json:"detail"`
}
