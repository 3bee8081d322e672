// Package sii contiene los casos de uso de validación de documentos contra el SII.
package sii

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

// contribuyenteTTL vigencia del cache de contribuyentes.
const contribuyenteTTL = 30 * time.Minute

var tipoDTE = map[string]int{
	entity.TipoFacturaAfecta: 33,
	entity.TipoFacturaExenta: 34,
	entity.TipoBoletaAfecta:  39,
	entity.TipoBoletaExenta:  41,
	entity.TipoNotaCredito:   61,
}

type cached struct {
	c  Contribuyente
	at time.Time
}

// UseCase valida documentos y refresca su estado SII.
type UseCase struct {
	docs       repository.DocumentRepository
	tx         TxRunner
	provider   Provider
	rutEmpresa string
	log        zerolog.Logger
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

// NewUseCase construye el caso de uso. rutEmpresa es el RUT consultante (config SII_RUT_EMPRESA).
func NewUseCase(docs repository.DocumentRepository, tx TxRunner, provider Provider, rutEmpresa string, log zerolog.Logger) *UseCase {
	return &UseCase{
		docs:       docs,
		tx:         tx,
		provider:   provider,
		rutEmpresa: rutEmpresa,
		log:        log,
		now:        time.Now,
		cache:      make(map[string]cached),
	}
}

// BuildRequest arma los datos del DTE desde el documento. Tipos desconocidos van como 33.
func (uc *UseCase) BuildRequest(d *entity.Document) DTERequest {
	req := DTERequest{
		EmisorRut:   uc.rutEmpresa,
		ReceptorRut: d.RutProveedor,
		TipoDTE:     33,
	}
	if code, ok := tipoDTE[d.TipoDocumento]; ok {
		req.TipoDTE = code
	}
	if n, err := strconv.ParseInt(d.Folio, 10, 64); err == nil {
		req.Folio = n
	}
	if d.Total.Valid {
		req.MontoTotal = d.Total.Decimal.Round(0).IntPart()
	}
	fecha := uc.now()
	if d.FechaEmision != nil {
		fecha = *d.FechaEmision
	}
	req.FechaEmision = fecha.Format("2006-01-02")
	return req
}

// Validate envía el documento al SII. Un rechazo no es error: vuelve OK=false con la glosa.
func (uc *UseCase) Validate(ctx context.Context, empresaID string, id int64) (*dto.SIIResult, error) {
	doc, err := uc.find(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	req := uc.BuildRequest(doc)

	res, err := uc.provider.ValidarDTE(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: validar_dte: %v", domain.ErrProviderError, err)
	}

	now := uc.now()
	doc.SIIGlosa = res.Glosa
	doc.SIIValidadoEn = &now
	doc.ValidadoSII = false
	if res.OK {
		doc.SIITrackID = res.TrackID
		doc.SIIEstado = entity.SIIRecibido
	} else {
		doc.SIITrackID = ""
		doc.SIIEstado = entity.SIIRechazado
	}

	status := 200
	if !res.OK {
		status = 202
	}
	trace := newTrace(doc, entity.SIIEndpointValidarDTE, res.TrackID, req, res, string(doc.SIIEstado), res.OK, status)
	if err := uc.persist(ctx, doc, trace); err != nil {
		return nil, err
	}

	uc.log.Info().Int64("documento_id", id).Bool("ok", res.OK).Str("track_id", res.TrackID).Msg("validar_dte")
	return &dto.SIIResult{OK: res.OK, TrackID: res.TrackID, Estado: string(doc.SIIEstado), Glosa: res.Glosa}, nil
}

// Refresh consulta el estado por track id; domain.ErrNoTrackID si el documento no se validó.
// ACEPTADO marca el documento como validado.
func (uc *UseCase) Refresh(ctx context.Context, empresaID string, id int64) (*dto.SIIResult, error) {
	doc, err := uc.find(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	if doc.SIITrackID == "" {
		return nil, domain.ErrNoTrackID
	}

	req := uc.BuildRequest(doc)
	res, err := uc.provider.EstadoDTE(ctx, doc.SIITrackID, req)
	if err != nil {
		return nil, fmt.Errorf("%w: estado_dte: %v", domain.ErrProviderError, err)
	}

	if res.Estado != "" {
		doc.SIIEstado = res.Estado
	}
	if res.Glosa != "" {
		doc.SIIGlosa = res.Glosa
	}
	switch doc.SIIEstado {
	case entity.SIIAceptado:
		doc.ValidadoSII = true
		if doc.Estado == entity.EstadoProcesado {
			doc.Estado = entity.EstadoValidado
		}
	case entity.SIIRechazado:
		doc.ValidadoSII = false
	}

	ok := doc.SIIEstado == entity.SIIAceptado
	payload := map[string]any{"track_id": doc.SIITrackID, "documento_id": doc.ID}
	trace := newTrace(doc, entity.SIIEndpointEstadoDTE, doc.SIITrackID, payload, res, string(res.Estado), ok, 200)
	if err := uc.persist(ctx, doc, trace); err != nil {
		return nil, err
	}

	uc.log.Debug().Int64("documento_id", id).Str("estado", string(doc.SIIEstado)).Msg("estado_dte")
	return &dto.SIIResult{OK: ok, TrackID: doc.SIITrackID, Estado: string(doc.SIIEstado), Glosa: doc.SIIGlosa}, nil
}

// Contribuyente consulta un RUT; las respuestas se cachean 30 minutos.
func (uc *UseCase) Contribuyente(ctx context.Context, raw string) (*Contribuyente, bool, error) {
	if err := rut.Validate(raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	key := rut.Format(raw)

	uc.mu.Lock()
	if c, ok := uc.cache[key]; ok && uc.now().Sub(c.at) < contribuyenteTTL {
		uc.mu.Unlock()
		out := c.c
		return &out, true, nil
	}
	uc.mu.Unlock()

	c, err := uc.provider.ConsultaContribuyente(ctx, key)
	if err != nil {
		return nil, false, err
	}
	uc.mu.Lock()
	uc.cache[key] = cached{c: *c, at: uc.now()}
	uc.mu.Unlock()
	return c, false, nil
}

func (uc *UseCase) persist(ctx context.Context, doc *entity.Document, trace *entity.SIITransaction) error {
	err := uc.tx.RunSII(ctx, func(docs repository.DocumentRepository, txs repository.SIITransactionRepository) error {
		if err := docs.UpdateSII(ctx, doc); err != nil {
			return err
		}
		return txs.Create(ctx, trace)
	})
	if err != nil {
		return fmt.Errorf("guardar resultado SII: %w", err)
	}
	return nil
}

func (uc *UseCase) find(ctx context.Context, empresaID string, id int64) (*entity.Document, error) {
	if empresaID == "" {
		return nil, domain.ErrNoEmpresa
	}
	d, err := uc.docs.GetByID(ctx, empresaID, id)
	if err != nil {
		return nil, fmt.Errorf("obtener documento: %w", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func newTrace(d *entity.Document, endpoint, trackID string, req, res any, estado string, ok bool, status int) *entity.SIITransaction {
	reqJSON, _ := json.Marshal(req)
	resJSON, _ := json.Marshal(res)
	return &entity.SIITransaction{
		EmpresaID:       d.EmpresaID,
		DocumentoID:     d.ID,
		Endpoint:        endpoint,
		TrackID:         trackID,
		RequestPayload:  reqJSON,
		ResponsePayload: resJSON,
		Estado:          estado,
		OK:              ok,
		StatusCode:      status,
	}
}
