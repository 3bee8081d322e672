package tui

import (
	"context"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

// Actions lo que la vista puede pedirle al motor.
type Actions interface {
	Filter() client.FilterState
	SetFilter(f client.FilterState)
	ResetFilters(ctx context.Context) error
	Reload(ctx context.Context) error
	CachedDetail(id int64) (livesync.DetailView, error)
	OpenDetail(ctx context.Context, id int64) (livesync.DetailView, error)
	Validate(ctx context.Context, id int64) (*dto.SIIResult, error)
	RefreshSII(ctx context.Context, id int64) (*dto.SIIResult, error)
}

// EngineActions expone un *livesync.Engine como Actions.
type EngineActions struct {
	*livesync.Engine
}

var _ Actions = EngineActions{}

func (e EngineActions) CachedDetail(id int64) (livesync.DetailView, error) {
	return e.Detail.Cached(id)
}

func (e EngineActions) OpenDetail(ctx context.Context, id int64) (livesync.DetailView, error) {
	return e.Detail.Open(ctx, id)
}

func (e EngineActions) Validate(ctx context.Context, id int64) (*dto.SIIResult, error) {
	return e.SII.Validate(ctx, id)
}

func (e EngineActions) RefreshSII(ctx context.Context, id int64) (*dto.SIIResult, error) {
	return e.SII.Refresh(ctx, id, false)
}
