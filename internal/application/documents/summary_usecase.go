package documents

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

var meses = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// SummaryUseCase resumen de documentos para el encabezado de la vista.
type SummaryUseCase struct {
	repo repository.SummaryRepository
	now  func() time.Time
}

// NewSummaryUseCase construye el caso de uso.
func NewSummaryUseCase(repo repository.SummaryRepository) *SummaryUseCase {
	return &SummaryUseCase{repo: repo, now: time.Now}
}

// GetSummary cuatro consultas en paralelo: por estado, por tipo, por estado SII y total del mes.
func (uc *SummaryUseCase) GetSummary(ctx context.Context, empresaID string) (*dto.DocumentSummaryResponse, error) {
	now := uc.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	var (
		porEstado map[entity.Estado]int
		porTipo   map[string]int
		porSII    map[entity.SIIEstado]int
		mes       entity.DocumentSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		porEstado, err = uc.repo.CountByEstado(gctx, empresaID)
		return err
	})
	g.Go(func() (err error) {
		porTipo, err = uc.repo.CountByTipo(gctx, empresaID)
		return err
	})
	g.Go(func() (err error) {
		porSII, err = uc.repo.CountBySIIEstado(gctx, empresaID)
		return err
	})
	g.Go(func() (err error) {
		mes, err = uc.repo.TotalBetween(gctx, empresaID, monthStart, monthEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resumen: %w", err)
	}

	out := &dto.DocumentSummaryResponse{
		PorEstado:    make(map[string]int, len(porEstado)),
		PorTipo:      porTipo,
		PorSIIEstado: make(map[string]int, len(porSII)),
		TotalMes:     mes.TotalMes,
		CantidadMes:  mes.CantMes,
		MesLabel:     fmt.Sprintf("%s %d", meses[now.Month()-1], now.Year()),
	}
	for e, n := range porEstado {
		out.PorEstado[string(e)] = n
		if e.IsPending() {
			out.Pendientes += n
		}
	}
	for e, n := range porSII {
		out.PorSIIEstado[string(e)] = n
	}
	if out.PorTipo == nil {
		out.PorTipo = map[string]int{}
	}
	return out, nil
}
