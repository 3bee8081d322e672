package dto

// ChatRequest body de POST /api/v1/ayuda/chat/.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse respuesta del asistente. ReplyHTML es el markdown ya renderizado.
type ChatResponse struct {
	Reply     string   `json:"reply"`
	ReplyHTML string   `json:"reply_html,omitempty"`
	Suggest   []string `json:"suggest"`
}
