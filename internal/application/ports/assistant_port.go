package ports

import "context"

// Assistant define el puerto de salida hacia el modelo de lenguaje del chat de ayuda.
// Cualquier adaptador (Anthropic, Gemini, mock) debe implementar esta interfaz.
type Assistant interface {
	// Answer responde la pregunta siguiendo el prompt de sistema. Devuelve markdown.
	// El contexto debe llevar un timeout para evitar bloqueos en llamadas externas.
	Answer(ctx context.Context, system, question string) (string, error)
}
