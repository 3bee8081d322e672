package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/auth"
	"github.com/jhoicas/sgidt-documentos/internal/application/chat"
	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/application/sii"
)

// CSRF: cookie y header con los nombres que espera el front (estilo Django).
const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"
	csrfContextKey = "csrf"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents *documents.UseCase
	Summary   *documents.SummaryUseCase
	SII       *sii.UseCase
	Chat      *chat.UseCase
	// Auth nil deja fuera registro, login y usuarios (tokens emitidos por otro servicio).
	Auth      *auth.UseCase
	JWTSecret string
	// MediaDir raíz del storage local; vacío si los archivos viven en GCS.
	MediaDir string
	// Log nil desactiva el log de requests.
	Log *zerolog.Logger
	// DisableCSRF solo para tests de handlers.
	DisableCSRF bool
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log != nil {
		app.Use(RequestLogger(*deps.Log))
	}
	if !deps.DisableCSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:" + CSRFHeaderName,
			CookieName:     CSRFCookieName,
			CookieSameSite: "Lax",
			Expiration:     8 * time.Hour,
			ContextKey:     csrfContextKey,
		}))
	}

	if deps.MediaDir != "" {
		app.Static("/media", deps.MediaDir)
	}

	// Página de la tabla (público): entrega el csrfmiddlewaretoken oculto
	app.Get("/app/documentos/", DocumentsPage)

	var authHandler *AuthHandler
	if deps.Auth != nil {
		authHandler = NewAuthHandler(deps.Auth)
		// Rutas públicas; se registran antes del grupo protegido
		app.Post("/api/v1/auth/registro", authHandler.Register)
		app.Post("/api/v1/auth/login", authHandler.Login)
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api/v1", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(RoleAdmin, RoleContador)

	if authHandler != nil {
		api.Get("/auth/me", authHandler.Me)
		api.Get("/empresa/", authHandler.Company)
		users := api.Group("/usuarios", RequireRole(RoleAdmin))
		users.Get("/", authHandler.ListUsers)
		users.Post("/", authHandler.CreateUser)
	}

	docHandler := NewDocumentHandler(deps.Documents, deps.Summary)
	docs := api.Group("/documentos")
	docs.Get("/", docHandler.List)
	docs.Post("/", write, docHandler.Upload)
	docs.Get("/progress-batch/", docHandler.ProgressBatch)
	docs.Get("/resumen/", docHandler.Summary)
	docs.Get("/reporte.pdf", docHandler.Report)
	docs.Get("/:id/", docHandler.Get)
	docs.Get("/:id/progress/", docHandler.Progress)

	siiHandler := NewSIIHandler(deps.SII)
	docs.Post("/:id/validar-sii/", write, siiHandler.Validar)
	docs.Get("/:id/estado-sii/", siiHandler.Estado)
	api.Get("/sii/contribuyente/", siiHandler.Contribuyente)

	chatHandler := NewChatHandler(deps.Chat)
	api.Post("/ayuda/chat/", chatHandler.Ask)
}
