package livesync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
)

// NoTrackIDMessage aviso cuando se consulta el estado de un documento sin validar.
const NoTrackIDMessage = "Primero valida el documento para obtener Track ID."

const (
	siiFollowUps     = 3
	siiFollowUpEvery = 5 * time.Second
)

// SIIActions validación y consulta de estado SII desde la tabla.
type SIIActions struct {
	api    API
	notify Notifier
	reload func(ctx context.Context)
	log    zerolog.Logger

	every time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSIIActions construye las acciones. reload puede ser nil.
func NewSIIActions(api API, notify Notifier, reload func(ctx context.Context), log zerolog.Logger) *SIIActions {
	return &SIIActions{api: api, notify: notify, reload: reload, log: log, every: siiFollowUpEvery, sleep: sleepCtx}
}

// WithFollowUpEvery cambia la espera entre consultas de seguimiento.
func (a *SIIActions) WithFollowUpEvery(d time.Duration) *SIIActions {
	a.every = d
	return a
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *SIIActions) doReload(ctx context.Context) {
	if a.reload != nil {
		a.reload(ctx)
	}
}

// Validate envía el documento al SII. Con track id recarga y consulta el estado
// tres veces cada 5 s; solo la última consulta avisa.
func (a *SIIActions) Validate(ctx context.Context, id int64) (*dto.SIIResult, error) {
	key := fmt.Sprintf("valida-%d", id)
	a.notify.Notify(Notification{Key: key, Level: LevelInfo, Message: "Validando en SII…", Persist: true})

	res, err := a.api.ValidarSII(ctx, id)
	if err != nil {
		a.notify.Notify(Notification{Key: key, Level: LevelError, Message: "Error validando en SII: " + err.Error()})
		return nil, err
	}
	track := res.TrackID
	if track == "" {
		track = "—"
	}
	a.notify.Notify(Notification{Key: key, Level: LevelSuccess, Message: "TrackID: " + track})
	a.doReload(ctx)

	if res.TrackID != "" {
		for i := 0; i < siiFollowUps; i++ {
			if err := a.sleep(ctx, a.every); err != nil {
				return res, nil
			}
			a.Refresh(ctx, id, i < siiFollowUps-1)
		}
	}
	return res, nil
}

// Refresh consulta el estado SII. Exige track id; silent omite los avisos.
func (a *SIIActions) Refresh(ctx context.Context, id int64, silent bool) (*dto.SIIResult, error) {
	if d, err := a.api.Get(ctx, id); err == nil && str(d["sii_track_id"]) == "" {
		if !silent {
			a.notify.Notify(Notification{Key: fmt.Sprintf("estado-%d", id), Level: LevelWarning, Message: NoTrackIDMessage})
		}
		return nil, nil
	}

	key := fmt.Sprintf("estado-%d", id)
	if !silent {
		a.notify.Notify(Notification{Key: key, Level: LevelInfo, Message: "Consultando estado SII…", Persist: true})
	}
	res, err := a.api.EstadoSII(ctx, id)
	if err != nil {
		a.log.Debug().Err(err).Int64("documento_id", id).Msg("estado-sii")
		if !silent {
			a.notify.Notify(Notification{Key: key, Level: LevelError, Message: "Error consultando SII: " + err.Error()})
		}
		return nil, err
	}
	if !silent {
		estado := res.Estado
		if estado == "" {
			estado = "—"
		}
		a.notify.Notify(Notification{Key: key, Level: LevelSuccess, Message: "Estado SII: " + estado})
	}
	a.doReload(ctx)
	return res, nil
}
