package livesync_test

import (
	"context"
	"strconv"
	"sync"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

// fakeAPI backend programable. Las funciones nil devuelven valores vacíos.
type fakeAPI struct {
	mu sync.Mutex

	list    func(ctx context.Context, f client.FilterState) ([]client.Row, error)
	get     func(ctx context.Context, id int64) (map[string]any, error)
	batch   func(ctx context.Context, ids []int64) ([]client.RowPatch, error)
	upload  func(ctx context.Context, files []client.UploadFile) (*dto.UploadResult, error)
	validar func(ctx context.Context, id int64) (*dto.SIIResult, error)
	estado  func(ctx context.Context, id int64) (*dto.SIIResult, error)

	listCalls   []client.FilterState
	batchCalls  [][]int64
	uploadCalls int
	getCalls    int
	estadoCalls int
}

var _ livesync.API = (*fakeAPI)(nil)

func (f *fakeAPI) List(ctx context.Context, fs client.FilterState) ([]client.Row, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, fs)
	fn := f.list
	f.mu.Unlock()
	if fn == nil {
		return []client.Row{}, nil
	}
	return fn(ctx, fs)
}

func (f *fakeAPI) Get(ctx context.Context, id int64) (map[string]any, error) {
	f.mu.Lock()
	f.getCalls++
	fn := f.get
	f.mu.Unlock()
	if fn == nil {
		return map[string]any{}, nil
	}
	return fn(ctx, id)
}

func (f *fakeAPI) ProgressBatch(ctx context.Context, ids []int64) ([]client.RowPatch, error) {
	f.mu.Lock()
	f.batchCalls = append(f.batchCalls, ids)
	fn := f.batch
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, ids)
}

func (f *fakeAPI) Upload(ctx context.Context, files []client.UploadFile, _ client.Progress) (*dto.UploadResult, error) {
	f.mu.Lock()
	f.uploadCalls++
	fn := f.upload
	f.mu.Unlock()
	if fn == nil {
		return &dto.UploadResult{Created: len(files)}, nil
	}
	return fn(ctx, files)
}

func (f *fakeAPI) ValidarSII(ctx context.Context, id int64) (*dto.SIIResult, error) {
	if f.validar == nil {
		return &dto.SIIResult{OK: true}, nil
	}
	return f.validar(ctx, id)
}

func (f *fakeAPI) EstadoSII(ctx context.Context, id int64) (*dto.SIIResult, error) {
	f.mu.Lock()
	f.estadoCalls++
	f.mu.Unlock()
	if f.estado == nil {
		return &dto.SIIResult{}, nil
	}
	return f.estado(ctx, id)
}

func (f *fakeAPI) counts() (list, batch, upload, get, estado int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls), len(f.batchCalls), f.uploadCalls, f.getCalls, f.estadoCalls
}

// recView registra lo que el motor pinta.
type recView struct {
	mu       sync.Mutex
	loading  int
	rendered [][]client.Row
	labels   []string
	errors   []string
	patches  map[int64][]string
}

func (v *recView) Loading() {
	v.mu.Lock()
	v.loading++
	v.mu.Unlock()
}

func (v *recView) Render(rows []client.Row, label string) {
	v.mu.Lock()
	v.rendered = append(v.rendered, rows)
	v.labels = append(v.labels, label)
	v.mu.Unlock()
}

func (v *recView) RenderError(msg string) {
	v.mu.Lock()
	v.errors = append(v.errors, msg)
	v.mu.Unlock()
}

func (v *recView) PatchRow(row client.Row, cells []string) {
	v.mu.Lock()
	if v.patches == nil {
		v.patches = map[int64][]string{}
	}
	v.patches[row.ID] = append(v.patches[row.ID], cells...)
	v.mu.Unlock()
}

func (v *recView) patchedIDs() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int64
	for id := range v.patches {
		ids = append(ids, id)
	}
	return ids
}

// recNotifier guarda los avisos.
type recNotifier struct {
	mu  sync.Mutex
	all []livesync.Notification
}

func (n *recNotifier) Notify(x livesync.Notification) {
	n.mu.Lock()
	n.all = append(n.all, x)
	n.mu.Unlock()
}

func (n *recNotifier) list() []livesync.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]livesync.Notification(nil), n.all...)
}

func (n *recNotifier) last() livesync.Notification {
	all := n.list()
	if len(all) == 0 {
		return livesync.Notification{}
	}
	return all[len(all)-1]
}

func row(id int64, estado string) client.Row {
	return client.Row{ID: id, Estado: estado, Folio: "F" + strconv.FormatInt(id, 10)}
}
