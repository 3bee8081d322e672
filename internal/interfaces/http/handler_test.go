package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/sgidt-documentos/internal/application/auth"
	"github.com/jhoicas/sgidt-documentos/internal/application/chat"
	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	appsii "github.com/jhoicas/sgidt-documentos/internal/application/sii"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/extract"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/memory"
	siimock "github.com/jhoicas/sgidt-documentos/internal/infrastructure/sii"
	"github.com/jhoicas/sgidt-documentos/internal/infrastructure/storage"
	apphttp "github.com/jhoicas/sgidt-documentos/internal/interfaces/http"
	"github.com/jhoicas/sgidt-documentos/pkg/logger"
)

const otraEmpresaID = "00000000-0000-0000-0000-0000000000ff"

type testEnv struct {
	app   *fiber.App
	store *memory.Store
}

func newTestEnv(t *testing.T, withCSRF bool) *testEnv {
	t.Helper()
	log := logger.Nop().Zerolog()
	store := memory.NewStore()
	files, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	docs := documents.NewUseCase(store, files, extract.PageCounter{}, nil, log)
	summary := documents.NewSummaryUseCase(store)
	provider := siimock.NewMockProvider().WithRand(func() float64 { return 0.5 })
	siiUC := appsii.NewUseCase(store, store, provider, "76.111.222-3", log)
	chatUC := chat.NewUseCase(nil, log).WithRateLimit(time.Hour, 3)
	accounts := memory.NewAccounts()
	authUC := auth.NewUseCase(accounts.Users(), accounts.Companies(),
		auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 30, Issuer: testIssuer}, log).WithBcryptCost(bcrypt.MinCost)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Documents:   docs,
		Summary:     summary,
		SII:         siiUC,
		Chat:        chatUC,
		Auth:        authUC,
		JWTSecret:   testJWTSecret,
		DisableCSRF: !withCSRF,
	})
	return &testEnv{app: app, store: store}
}

func (e *testEnv) seed(t *testing.T, empresaID string, mut func(d *entity.Document)) int64 {
	t.Helper()
	now := time.Now()
	d := &entity.Document{
		EmpresaID:     empresaID,
		Estado:        entity.EstadoPendiente,
		NombreArchivo: "factura.pdf",
		HashSHA256:    uuid.NewString(),
		MimeType:      "application/pdf",
		Origen:        entity.OrigenManual,
		CreadoEn:      now,
		ActualizadoEn: now,
	}
	if mut != nil {
		mut(d)
	}
	require.NoError(t, e.store.Create(t.Context(), d))
	return d.ID
}

func (e *testEnv) do(t *testing.T, req *http.Request, auth string) *http.Response {
	t.Helper()
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// ── Listado y detalle ───────────────────────────────────────────────────────

func TestDocumentos_SinToken_Retorna401(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documentos/", nil), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDocumentos_ListFiltraPorEmpresaYEstado(t *testing.T) {
	env := newTestEnv(t, false)
	pendiente := env.seed(t, testEmpresaID, nil)
	env.seed(t, testEmpresaID, func(d *entity.Document) { d.Estado = entity.EstadoError })
	env.seed(t, otraEmpresaID, nil)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documentos/?docStatus=pendiente", nil), tokenForRole(t, "lector"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[dto.DocumentListResponse](t, resp)
	require.Len(t, out.Results, 1)
	assert.Equal(t, pendiente, out.Results[0].ID)
	assert.Equal(t, "pendiente", out.Results[0].Estado)
	assert.Nil(t, out.Results[0].Total)
}

func TestDocumentos_DetalleDeOtraEmpresa_Retorna404(t *testing.T) {
	env := newTestEnv(t, false)
	ajeno := env.seed(t, otraEmpresaID, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documentos/"+itoa(ajeno)+"/", nil)
	resp := env.do(t, req, tokenForRole(t, "lector"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocumentos_ProgressBatchIgnoraIdsInvalidos(t *testing.T) {
	env := newTestEnv(t, false)
	propio := env.seed(t, testEmpresaID, nil)
	ajeno := env.seed(t, otraEmpresaID, nil)

	url := "/api/v1/documentos/progress-batch/?ids=" + itoa(propio) + ",abc," + itoa(ajeno)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), tokenForRole(t, "lector"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[dto.ProgressBatchResponse](t, resp)
	assert.True(t, out.OK)
	require.Len(t, out.Documentos, 1)
	assert.Equal(t, propio, out.Documentos[0].ID)
}

func TestDocumentos_ProgressBatchSinIds(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documentos/progress-batch/?ids=", nil), tokenForRole(t, "lector"))
	out := decode[dto.ProgressBatchResponse](t, resp)
	assert.True(t, out.OK)
	assert.Empty(t, out.Documentos)
}

// ── Carga ───────────────────────────────────────────────────────────────────

func TestUpload_CreaYOmiteDuplicados(t *testing.T) {
	env := newTestEnv(t, false)
	png := []byte("\x89PNG\r\n\x1a\nfake-image")

	body, ct := multipartBody(t, "files[]", map[string][]byte{"boleta.png": png, "malware.exe": []byte("MZ")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documentos/", body)
	req.Header.Set("Content-Type", ct)
	resp := env.do(t, req, tokenForRole(t, "contador"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decode[dto.UploadResult](t, resp)
	assert.Equal(t, 1, out.Created)
	assert.Equal(t, 0, out.Skipped)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "malware.exe")

	// Mismo contenido otra vez: omitido, sin creados -> 200
	body, ct = multipartBody(t, "files", map[string][]byte{"copia.png": png})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/documentos/", body)
	req.Header.Set("Content-Type", ct)
	resp = env.do(t, req, tokenForRole(t, "admin"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out = decode[dto.UploadResult](t, resp)
	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 1, out.Skipped)
}

func TestUpload_SinArchivos(t *testing.T) {
	env := newTestEnv(t, false)
	body, ct := multipartBody(t, "files[]", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documentos/", body)
	req.Header.Set("Content-Type", ct)
	resp := env.do(t, req, tokenForRole(t, "admin"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[dto.UploadResult](t, resp)
	assert.Equal(t, []string{"No se recibieron archivos"}, out.Errors)
}

func TestUpload_LectorNoPuedeCargar(t *testing.T) {
	env := newTestEnv(t, false)
	body, ct := multipartBody(t, "files[]", map[string][]byte{"a.png": []byte("x")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documentos/", body)
	req.Header.Set("Content-Type", ct)
	resp := env.do(t, req, tokenForRole(t, "lector"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ── SII ─────────────────────────────────────────────────────────────────────

func TestSII_EstadoSinTrackID_Retorna409(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.seed(t, testEmpresaID, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documentos/"+itoa(id)+"/estado-sii/", nil)
	resp := env.do(t, req, tokenForRole(t, "lector"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	out := decode[dto.DetailResponse](t, resp)
	assert.Equal(t, "Primero valida el documento para obtener Track ID.", out.Detail)
}

func TestSII_ValidarYConsultarEstado(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.seed(t, testEmpresaID, func(d *entity.Document) {
		d.Estado = entity.EstadoProcesado
		d.TipoDocumento = entity.TipoFacturaAfecta
		d.Folio = "1234"
		d.RutProveedor = "76.333.222-5"
		d.Total = decimal.NewNullDecimal(decimal.NewFromInt(119000))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documentos/"+itoa(id)+"/validar-sii/", nil)
	resp := env.do(t, req, tokenForRole(t, "contador"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	validar := decode[dto.SIIActionResponse](t, resp)
	assert.True(t, validar.Result.OK)
	assert.NotEmpty(t, validar.Result.TrackID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documentos/"+itoa(id)+"/estado-sii/", nil)
	resp = env.do(t, req, tokenForRole(t, "lector"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	estado := decode[dto.SIIActionResponse](t, resp)
	assert.Equal(t, string(entity.SIIEnProceso), estado.Result.Estado)
	assert.Equal(t, validar.Result.TrackID, estado.Result.TrackID)

	assert.Len(t, env.store.Transactions(), 2)
}

func TestSII_LectorNoPuedeValidar(t *testing.T) {
	env := newTestEnv(t, false)
	id := env.seed(t, testEmpresaID, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documentos/"+itoa(id)+"/validar-sii/", nil)
	resp := env.do(t, req, tokenForRole(t, "lector"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSII_ContribuyenteRutInvalido(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sii/contribuyente/?rut=76.333.222-9", nil), tokenForRole(t, "lector"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSII_ContribuyenteCache(t *testing.T) {
	env := newTestEnv(t, false)
	get := func() dto.ContribuyenteResponse {
		resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sii/contribuyente/?rut=763332225", nil), tokenForRole(t, "lector"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[dto.ContribuyenteResponse](t, resp)
	}
	first := get()
	assert.Equal(t, "76.333.222-5", first.Rut)
	assert.False(t, first.Cache)
	assert.True(t, get().Cache)
}

// ── Chat ────────────────────────────────────────────────────────────────────

func chatRequest(t *testing.T, msg string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(dto.ChatRequest{Message: msg})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ayuda/chat/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func TestChat_RespondeReglaLocal(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, chatRequest(t, "¿Cómo subo un PDF?"), tokenForRole(t, "lector"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ChatResponse](t, resp)
	assert.NotEmpty(t, out.Reply)
}

func TestChat_MensajeLargo_Retorna413(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, chatRequest(t, strings.Repeat("a", 1001)), tokenForRole(t, "lector"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestChat_LimiteDeConsultas_Retorna429(t *testing.T) {
	env := newTestEnv(t, false)
	tok := tokenForRole(t, "lector")
	for i := 0; i < 3; i++ {
		resp := env.do(t, chatRequest(t, "hola"), tok)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := env.do(t, chatRequest(t, "hola"), tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

// ── CSRF ────────────────────────────────────────────────────────────────────

var hiddenToken = regexp.MustCompile(`name="csrfmiddlewaretoken" value="([^"]+)"`)

func TestCSRF_PaginaEntregaTokenYPostLoExige(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/app/documentos/", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == apphttp.CSRFCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "la página debe dejar la cookie csrftoken")

	m := hiddenToken.FindSubmatch(html)
	require.Len(t, m, 2, "la página debe traer el campo oculto")
	assert.Equal(t, cookie.Value, string(m[1]))

	// Sin header: rechazado antes de la autenticación
	resp = env.do(t, chatRequest(t, "hola"), tokenForRole(t, "lector"))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := chatRequest(t, "hola")
	req.AddCookie(cookie)
	req.Header.Set(apphttp.CSRFHeaderName, cookie.Value)
	resp = env.do(t, req, tokenForRole(t, "lector"))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
