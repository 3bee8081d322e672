package documents

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

const processorBatch = 20

// Processor avanza los documentos cargados: pendiente -> procesando -> procesado | error.
// Cada tick mueve un paso, así la tabla alcanza a mostrar el estado intermedio.
type Processor struct {
	repo      repository.DocumentRepository
	content   func(ctx context.Context, d *entity.Document) ([]byte, error)
	extractor Extractor
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewProcessor construye el procesador; content lee el archivo desde el storage.
func NewProcessor(repo repository.DocumentRepository, uc *UseCase, extractor Extractor, interval time.Duration, log zerolog.Logger) *Processor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Processor{repo: repo, content: uc.Content, extractor: extractor, interval: interval, log: log, now: time.Now}
}

// Run ejecuta Tick en cada intervalo hasta que ctx se cancele.
func (p *Processor) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := p.Tick(ctx); err != nil && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("tick del procesador")
			}
		}
	}
}

// Tick termina los documentos en procesando y luego toma los pendientes.
func (p *Processor) Tick(ctx context.Context) error {
	working, err := p.repo.ListByEstado(ctx, entity.EstadoProcesando, processorBatch)
	if err != nil {
		return err
	}
	for _, d := range working {
		p.finish(ctx, d)
	}

	pending, err := p.repo.ListByEstado(ctx, entity.EstadoPendiente, processorBatch)
	if err != nil {
		return err
	}
	for _, d := range pending {
		d.Estado = entity.EstadoProcesando
		d.ActualizadoEn = p.now()
		if err := p.repo.UpdateExtraction(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, d *entity.Document) {
	logger := p.log.With().Int64("documento_id", d.ID).Str("empresa_id", d.EmpresaID).Logger()

	ex, err := p.extract(ctx, d)
	if err != nil {
		logger.Warn().Err(err).Msg("extracción fallida")
		d.Estado = entity.EstadoError
	} else {
		apply(d, ex)
		d.Estado = entity.EstadoProcesado
	}
	d.ActualizadoEn = p.now()
	if err := p.repo.UpdateExtraction(ctx, d); err != nil {
		logger.Error().Err(err).Msg("no se pudo guardar la extracción")
		return
	}
	logger.Debug().Str("estado", string(d.Estado)).Msg("documento procesado")
}

func (p *Processor) extract(ctx context.Context, d *entity.Document) (*Extraction, error) {
	content, err := p.content(ctx, d)
	if err != nil {
		return nil, err
	}
	return p.extractor.Extract(ctx, d.MimeType, content)
}

// apply copia solo lo que se encontró; no pisa datos ya cargados con vacíos.
func apply(d *entity.Document, ex *Extraction) {
	if ex.TipoDocumento != "" {
		d.TipoDocumento = ex.TipoDocumento
	}
	if ex.Folio != "" {
		d.Folio = ex.Folio
	}
	if ex.RutProveedor != "" {
		d.RutProveedor = ex.RutProveedor
	}
	if ex.RazonSocialProveedor != "" {
		d.RazonSocialProveedor = ex.RazonSocialProveedor
	}
	if ex.FechaEmision != nil {
		d.FechaEmision = ex.FechaEmision
	}
	if ex.MontoNeto.Valid {
		d.MontoNeto = ex.MontoNeto
	}
	if ex.MontoExento.Valid {
		d.MontoExento = ex.MontoExento
	}
	if ex.IVA.Valid {
		d.IVA = ex.IVA
	}
	if ex.Total.Valid {
		d.Total = ex.Total
	}
}
