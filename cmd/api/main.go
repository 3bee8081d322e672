package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/sgidt-documentos/internal/application/auth"
	"github.com/jhoicas/sgidt-documentos/internal/application/chat"
	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/application/ports"
	appsii "github.com/jhoicas/sgidt-documentos/internal/application/sii"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
	infraai "github.com/jhoicas/sgidt-documentos/internal/infrastructure/ai"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/extract"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/sgidt-documentos/internal/infrastructure/pdf"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/postgres"
	infrasii "github.com/jhoicas/sgidt-documentos/internal/infrastructure/sii"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/sgidt-documentos/internal/interfaces/http"
	"github.com/jhoicas/sgidt-documentos/pkg/config"
	"github.com/jhoicas/sgidt-documentos/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db", cfg.DB.Driver).
		Str("storage", cfg.Storage.Driver).
		Str("sii", cfg.SII.Provider).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Persistencia ─────────────────────────────────────────────
	var (
		docRepo     repository.DocumentRepository
		summaryRepo repository.SummaryRepository
		txRunner    appsii.TxRunner
		userRepo    repository.UserRepository
		companyRepo repository.CompanyRepository
	)
	switch cfg.DB.Driver {
	case "memory":
		store := memory.NewStore()
		docRepo, summaryRepo, txRunner = store, store, store
		accounts := memory.NewAccounts()
		userRepo, companyRepo = accounts.Users(), accounts.Companies()
		log.Warn().Msg("DB_DRIVER=memory: los documentos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		docRepo = postgres.NewDocumentRepository(pool)
		summaryRepo = postgres.NewSummaryRepository(pool)
		txRunner = postgres.NewTxRunner(pool)
		userRepo = postgres.NewUserRepository(pool)
		companyRepo = postgres.NewCompanyRepository(pool)
	}

	// ── Archivos ─────────────────────────────────────────────────
	var (
		files    documents.FileStorage
		mediaDir string
	)
	switch cfg.Storage.Driver {
	case "gcs":
		gcs, err := storage.NewGCS(ctx, cfg.Storage.GCSBucket, cfg.Storage.PublicURL, log.Component("gcs"))
		if err != nil {
			log.Fatal().Err(err).Msg("cliente GCS")
		}
		defer gcs.Close()
		files = gcs
	default:
		local, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL)
		if err != nil {
			log.Fatal().Err(err).Msg("storage local")
		}
		files, mediaDir = local, local.Root()
	}

	// ── SII ──────────────────────────────────────────────────────
	var provider appsii.Provider
	switch cfg.SII.Provider {
	case "soap":
		soap, err := infrasii.NewSOAPProvider(infrasii.SOAPConfig{
			Environment:    cfg.SII.Environment,
			Token:          cfg.SII.Token,
			RutConsultante: cfg.SII.RutEmpresa,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("proveedor SII SOAP")
		}
		provider = soap
	default:
		provider = infrasii.NewMockProvider()
	}

	// ── Asistente del chat ───────────────────────────────────────
	var assistant ports.Assistant
	switch {
	case cfg.AI.Provider == "gemini" && cfg.AI.GeminiAPIKey != "":
		assistant = infraai.NewGeminiService(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
	case cfg.AI.Provider == "anthropic" && cfg.AI.AnthropicAPIKey != "":
		assistant = infraai.NewAnthropicService(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel)
	default:
		log.Info().Msg("chat de ayuda sin asistente IA: solo respuestas locales")
	}

	documentsUC := documents.NewUseCase(docRepo, files, extract.PageCounter{}, infrapdf.NewMarotoPDFGenerator(cfg.App.Name), log.Component("documentos"))
	summaryUC := documents.NewSummaryUseCase(summaryRepo)
	siiUC := appsii.NewUseCase(docRepo, txRunner, provider, cfg.SII.RutEmpresa, log.Component("sii"))
	chatUC := chat.NewUseCase(assistant, log.Component("chat"))
	authUC := auth.NewUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log.Component("auth"))
	processor := documents.NewProcessor(docRepo, documentsUC, extract.NewPDFExtractor(log.Component("extract")), cfg.Processor.Interval, log.Component("procesador"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "SGIDT Documentos API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpLog := log.Component("http")
	httpRouter.Router(app, httpRouter.RouterDeps{
		Log:       &httpLog,
		Documents: documentsUC,
		Summary:   summaryUC,
		SII:       siiUC,
		Chat:      chatUC,
		Auth:      authUC,
		JWTSecret: cfg.JWT.Secret,
		MediaDir:  mediaDir,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return processor.Run(gctx)
	})
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor finalizado con error")
	}
	log.Info().Msg("aplicación detenida")
}
