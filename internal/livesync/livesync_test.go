package livesync_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var nop = zerolog.Nop()

// ── Loader ──────────────────────────────────────────────────────────────────

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "Sin resultados", livesync.ResultLabel(0))
	assert.Equal(t, "1 resultado", livesync.ResultLabel(1))
	assert.Equal(t, "12 resultados", livesync.ResultLabel(12))
}

func TestLoader_ReemplazaCacheYEmiteRendered(t *testing.T) {
	api := &fakeAPI{list: func(context.Context, client.FilterState) ([]client.Row, error) {
		return []client.Row{row(2, "pendiente"), row(1, "procesado")}, nil
	}}
	view := &recView{}
	store := livesync.NewStore()
	store.Replace([]client.Row{row(99, "error")})

	l := livesync.NewLoader(api, store, view, nop)
	var rendered int
	l.OnRendered(func() { rendered++ })

	require.NoError(t, l.Load(context.Background(), client.FilterState{Search: "x"}))

	assert.Equal(t, 1, rendered)
	assert.Equal(t, 1, view.loading)
	assert.Equal(t, []string{"2 resultados"}, view.labels)
	_, stale := store.Get(99)
	assert.False(t, stale, "el cache se reemplaza completo")
	assert.Equal(t, []int64{2}, store.PendingIDs())
	assert.Equal(t, []client.FilterState{{Search: "x"}}, api.listCalls)
}

func TestLoader_ErrorPintaFilaDeError(t *testing.T) {
	api := &fakeAPI{list: func(context.Context, client.FilterState) ([]client.Row, error) {
		return nil, &client.HTTPError{Status: 500}
	}}
	view := &recView{}
	l := livesync.NewLoader(api, livesync.NewStore(), view, nop)
	var rendered int
	l.OnRendered(func() { rendered++ })

	err := l.Load(context.Background(), client.FilterState{})
	require.Error(t, err)
	assert.Equal(t, []string{livesync.LoadErrorMessage}, view.errors)
	assert.Zero(t, rendered)
	assert.Len(t, api.listCalls, 1, "sin reintentos")
}

func TestLoader_DescartaRespuestaVieja(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	api := &fakeAPI{list: func(_ context.Context, f client.FilterState) ([]client.Row, error) {
		if calls.Add(1) == 1 {
			<-release
			return []client.Row{row(1, "pendiente")}, nil
		}
		return []client.Row{row(2, "procesado")}, nil
	}}
	store := livesync.NewStore()
	l := livesync.NewLoader(api, store, &recView{}, nop)

	first := make(chan error, 1)
	go func() { first <- l.Load(context.Background(), client.FilterState{Search: "viejo"}) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, l.Load(context.Background(), client.FilterState{Search: "nuevo"}))
	close(release)

	assert.ErrorIs(t, <-first, livesync.ErrStale)
	rows := store.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
}

// blockingView detiene el primer Render hasta que se cierre release.
type blockingView struct {
	recView
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (v *blockingView) Render(rows []client.Row, label string) {
	first := false
	v.once.Do(func() { first = true })
	if first {
		close(v.entered)
		<-v.release
	}
	v.recView.Render(rows, label)
}

func TestLoader_RecargaNuevaNoPisaRenderEnCurso(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{list: func(context.Context, client.FilterState) ([]client.Row, error) {
		if calls.Add(1) == 1 {
			return []client.Row{row(1, "pendiente")}, nil
		}
		return []client.Row{row(2, "procesado")}, nil
	}}
	view := &blockingView{entered: make(chan struct{}), release: make(chan struct{})}
	store := livesync.NewStore()
	l := livesync.NewLoader(api, store, view, nop)

	first := make(chan error, 1)
	go func() { first <- l.Load(context.Background(), client.FilterState{}) }()
	<-view.entered

	second := make(chan error, 1)
	go func() { second <- l.Load(context.Background(), client.FilterState{}) }()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	// La segunda recarga espera a que termine el render de la primera.
	assert.Never(t, func() bool {
		rows := store.Rows()
		return len(rows) == 1 && rows[0].ID == 2
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(view.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	rows := store.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
	view.mu.Lock()
	defer view.mu.Unlock()
	require.Len(t, view.rendered, 2)
	assert.Equal(t, int64(2), view.rendered[1][0].ID)
}

// ── Store ───────────────────────────────────────────────────────────────────

func TestStore_PatchSoloFilasConocidas(t *testing.T) {
	store := livesync.NewStore()
	before := []client.Row{row(1, "pendiente"), row(2, "procesando"), row(3, "procesado")}
	store.Replace(before)

	total := decimal.NewNullDecimal(decimal.NewFromInt(11900))
	changes := store.Patch([]client.RowPatch{
		{ID: 2, Estado: client.Some("procesado"), Total: client.Some(total), RutProveedor: client.Some("76.333.222-5")},
		{ID: 42, Estado: client.Some("error")},
	})
	require.Len(t, changes, 1)
	assert.ElementsMatch(t, []string{"estado", "total", "rut_proveedor"}, changes[0].Cells)

	want := []client.Row{before[0], before[1], before[2]}
	want[1].Estado = "procesado"
	want[1].Total = total
	want[1].RutProveedor = "76.333.222-5"
	if diff := cmp.Diff(want, store.Rows(), cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("filas tras el parche (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int64{1}, store.PendingIDs())
}

// ── Reconciler ──────────────────────────────────────────────────────────────

func TestReconciler_SeDetieneSinPendientes(t *testing.T) {
	store := livesync.NewStore()
	store.Replace([]client.Row{row(1, "pendiente"), row(2, "procesando"), row(3, "procesado")})

	var tick atomic.Int32
	api := &fakeAPI{batch: func(_ context.Context, ids []int64) ([]client.RowPatch, error) {
		if tick.Add(1) == 1 {
			return []client.RowPatch{{ID: 1, Estado: client.Some("procesando")}}, nil
		}
		out := make([]client.RowPatch, 0, len(ids))
		for _, id := range ids {
			out = append(out, client.RowPatch{ID: id, Estado: client.Some("procesado")})
		}
		return out, nil
	}}
	view := &recView{}
	r := livesync.NewReconciler(api, store, view, 5*time.Millisecond, nop)

	require.True(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return !r.Running() }, time.Second, time.Millisecond)
	r.Stop()

	_, batches, _, _, _ := api.counts()
	assert.Equal(t, 2, batches)
	assert.Equal(t, [][]int64{{1, 2}, {1, 2}}, api.batchCalls)
	assert.Empty(t, store.PendingIDs())
	assert.ElementsMatch(t, []int64{1, 2}, view.patchedIDs())
}

func TestReconciler_SinPendientesNoArranca(t *testing.T) {
	store := livesync.NewStore()
	store.Replace([]client.Row{row(1, "procesado"), row(2, "cola")})
	r := livesync.NewReconciler(&fakeAPI{}, store, &recView{}, time.Millisecond, nop)
	assert.False(t, r.Start(context.Background()))
	assert.False(t, r.Running())
}

func TestReconciler_UnSoloLoopYStop(t *testing.T) {
	store := livesync.NewStore()
	store.Replace([]client.Row{row(1, "pendiente")})
	api := &fakeAPI{}
	r := livesync.NewReconciler(api, store, &recView{}, 2*time.Millisecond, nop)

	require.True(t, r.Start(context.Background()))
	assert.False(t, r.Start(context.Background()), "ya hay un loop corriendo")

	require.Eventually(t, func() bool { _, b, _, _, _ := api.counts(); return b >= 2 }, time.Second, time.Millisecond)
	assert.True(t, r.Running(), "sigue mientras haya pendientes")
	r.Stop()
	assert.False(t, r.Running())
}

func TestReconciler_ErrorDeRedReintenta(t *testing.T) {
	store := livesync.NewStore()
	store.Replace([]client.Row{row(1, "pendiente")})
	var tick atomic.Int32
	api := &fakeAPI{batch: func(context.Context, []int64) ([]client.RowPatch, error) {
		if tick.Add(1) == 1 {
			return nil, errors.New("conexión rechazada")
		}
		return []client.RowPatch{{ID: 1, Estado: client.Some("error")}}, nil
	}}
	r := livesync.NewReconciler(api, store, &recView{}, time.Millisecond, nop)

	require.True(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return !r.Running() }, time.Second, time.Millisecond)
	r.Stop()
	assert.Equal(t, int32(2), tick.Load())
}

// ── Debounce y motor ────────────────────────────────────────────────────────

func TestDebouncer_SoloElUltimo(t *testing.T) {
	d := livesync.NewDebouncer(15 * time.Millisecond)
	var got atomic.Int32
	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() { got.Store(n) })
	}
	require.Eventually(t, func() bool { return got.Load() == 5 }, time.Second, time.Millisecond)

	d.Trigger(func() { got.Store(99) })
	assert.True(t, d.Cancel())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(5), got.Load())
}

func TestEngine_FiltrosConDebounceYReset(t *testing.T) {
	api := &fakeAPI{}
	e := livesync.New(api, &recView{}, &recNotifier{}, livesync.Config{Debounce: 20 * time.Millisecond}, nop)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.Start(ctx))
	defer e.Close()

	e.SetFilter(client.FilterState{Search: "a"})
	e.SetFilter(client.FilterState{Search: "ac"})
	e.SetFilter(client.FilterState{Search: "acm", DocType: "factura"})
	require.Eventually(t, func() bool { l, _, _, _, _ := api.counts(); return l == 2 }, time.Second, time.Millisecond)

	require.NoError(t, e.ResetFilters(ctx))
	api.mu.Lock()
	calls := append([]client.FilterState(nil), api.listCalls...)
	api.mu.Unlock()
	assert.Equal(t, []client.FilterState{{}, {Search: "acm", DocType: "factura"}, {}}, calls)
}

func TestEngine_RenderLanzaPolling(t *testing.T) {
	api := &fakeAPI{
		list: func(context.Context, client.FilterState) ([]client.Row, error) {
			return []client.Row{row(1, "pendiente")}, nil
		},
		batch: func(context.Context, []int64) ([]client.RowPatch, error) {
			return []client.RowPatch{{ID: 1, Estado: client.Some("procesado")}}, nil
		},
	}
	e := livesync.New(api, &recView{}, &recNotifier{}, livesync.Config{PollInterval: time.Millisecond}, nop)
	require.NoError(t, e.Start(context.Background()))
	defer e.Close()

	require.Eventually(t, func() bool {
		r, _ := e.Store.Get(1)
		return r.Estado == "procesado"
	}, time.Second, time.Millisecond)
}

// ── Carga ───────────────────────────────────────────────────────────────────

func file(name string, size int64) client.UploadFile {
	return client.UploadFile{Name: name, Size: size, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("x")), nil
	}}
}

func TestUploadQueue_RechazaAntesDeLaRed(t *testing.T) {
	api := &fakeAPI{}
	n := &recNotifier{}
	q := livesync.NewUploadQueue(api, n, nil, nop)

	sum := q.Submit(context.Background(), []client.UploadFile{file("virus.exe", 10), file("enorme.pdf", 11<<20)}, nil)

	assert.Equal(t, []string{"virus.exe", "enorme.pdf"}, sum.Rejected)
	assert.Nil(t, sum.Result)
	_, _, uploads, _, _ := api.counts()
	assert.Zero(t, uploads)
	assert.Equal(t, livesync.LevelWarning, n.last().Level)
}

func TestUploadQueue_ResumenYDuplicados(t *testing.T) {
	api := &fakeAPI{upload: func(_ context.Context, files []client.UploadFile) (*dto.UploadResult, error) {
		require.Len(t, files, 1)
		return &dto.UploadResult{Created: 1, Skipped: 2, Errors: []string{"b.pdf: UNIQUE constraint failed: documentos.hash_sha256", "c.pdf: PDF ilegible"}}, nil
	}}
	n := &recNotifier{}
	var reloads int
	q := livesync.NewUploadQueue(api, n, func(context.Context) { reloads++ }, nop)

	sum := q.Submit(context.Background(), []client.UploadFile{file("a.PDF", 100), file("b.txt", 1)}, nil)

	assert.Equal(t, []string{"b.txt"}, sum.Rejected)
	assert.Equal(t, "Subidos: 1 | Duplicados: 2 | Errores: Archivo duplicado en la empresa, c.pdf: PDF ilegible", sum.Message)
	assert.Equal(t, livesync.LevelWarning, sum.Level)
	assert.Equal(t, 1, reloads)

	all := n.list()
	assert.Equal(t, livesync.Notification{Key: "upload", Level: livesync.LevelInfo, Message: "Subiendo archivos…", Persist: true}, all[1])
	assert.Equal(t, "upload", n.last().Key)
}

func TestUploadQueue_Niveles(t *testing.T) {
	ok := &fakeAPI{}
	sum := livesync.NewUploadQueue(ok, &recNotifier{}, nil, nop).Submit(context.Background(), []client.UploadFile{file("a.png", 1)}, nil)
	assert.Equal(t, livesync.LevelSuccess, sum.Level)
	assert.Equal(t, "Subidos: 1", sum.Message)

	down := &fakeAPI{upload: func(context.Context, []client.UploadFile) (*dto.UploadResult, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	var reloads int
	sum = livesync.NewUploadQueue(down, &recNotifier{}, func(context.Context) { reloads++ }, nop).Submit(context.Background(), []client.UploadFile{file("a.png", 1)}, nil)
	assert.Equal(t, livesync.LevelError, sum.Level)
	assert.True(t, strings.HasPrefix(sum.Message, "Error de red al subir:"))
	assert.Zero(t, reloads)
}

func TestRewriteUploadError(t *testing.T) {
	assert.Equal(t, livesync.DuplicateMessage, livesync.RewriteUploadError("IntegrityError: unique constraint failed: HASH_SHA256"))
	assert.Equal(t, "otro error", livesync.RewriteUploadError("otro error"))
}

func TestSimulatedProgress(t *testing.T) {
	sp := livesync.DefaultSimulatedProgress()
	assert.Equal(t, []int{8, 16, 24, 32, 40, 48, 56, 64, 72, 80, 88, 92}, sp.Steps())

	sp.Every = time.Millisecond
	var got []int
	sp.Run(context.Background(), func(p int) { got = append(got, p) })
	assert.Equal(t, sp.Steps(), got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got = nil
	sp.Run(ctx, func(p int) { got = append(got, p) })
	assert.Empty(t, got)
}
