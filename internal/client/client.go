// Package client es el cliente HTTP tipado del backend de documentos.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
)

const (
	documentosPath = "/api/v1/documentos/"
	pagePath       = "/app/documentos/"
	chatPath       = "/api/v1/ayuda/chat/"

	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"

	// ChatTimeout tope de espera de una respuesta del chat.
	ChatTimeout = 25 * time.Second
)

// HTTPError respuesta no 2xx. Detail trae data.detail (o message) cuando el backend lo envía.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// StatusOf devuelve el código HTTP de err, 0 si no es un HTTPError.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// FilterState filtros de la tabla; no se persisten.
type FilterState struct {
	Search    string
	DateFrom  string
	DateTo    string
	DocType   string
	DocStatus string
}

// Query serializa los filtros omitiendo los vacíos.
func (f FilterState) Query() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	set("search", f.Search)
	set("dateFrom", f.DateFrom)
	set("dateTo", f.DateTo)
	set("docType", f.DocType)
	set("docStatus", f.DocStatus)
	return v
}

// IsZero indica que no hay ningún filtro activo.
func (f FilterState) IsZero() bool { return len(f.Query()) == 0 }

// Option configura el cliente.
type Option func(*Client)

// WithHTTPClient reemplaza el http.Client (se le asigna el cookie jar si no tiene).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// Client habla con /api/v1 usando Bearer y el token CSRF en los métodos no seguros.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger

	mu   sync.Mutex
	csrf string
}

// New construye el cliente. baseURL sin barra final, ej. http://localhost:8080.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// ── Sesión ──────────────────────────────────────────────────────────────────

// Login obtiene un token con email y contraseña; el cliente lo usa desde ese momento.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return &out, nil
}

// Me usuario dueño del token.
func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.UserResponse
	if err := c.getJSON(ctx, "/api/v1/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Documentos ──────────────────────────────────────────────────────────────

// List trae las filas que cumplen el filtro.
func (c *Client) List(ctx context.Context, f FilterState) ([]Row, error) {
	path := documentosPath
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	var out struct {
		Results []Row `json:"results"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Row{}
	}
	return out.Results, nil
}

// Get trae el registro completo como mapa (el detalle agrupa todas las claves que lleguen).
func (c *Client) Get(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf("%s%d/", documentosPath, id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProgressBatch consulta el estado de varios documentos. Sin ids no hace request.
func (c *Client) ProgressBatch(ctx context.Context, ids []int64) ([]RowPatch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out struct {
		OK         bool       `json:"ok"`
		Documentos []RowPatch `json:"documentos"`
	}
	if err := c.getJSON(ctx, documentosPath+"progress-batch/?ids="+joinIDs(ids), &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, nil
	}
	return out.Documentos, nil
}

// Summary resumen del dashboard.
func (c *Client) Summary(ctx context.Context) (*dto.DocumentSummaryResponse, error) {
	var out dto.DocumentSummaryResponse
	if err := c.getJSON(ctx, documentosPath+"resumen/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report descarga el PDF del listado filtrado.
func (c *Client) Report(ctx context.Context, f FilterState) ([]byte, error) {
	path := documentosPath + "reporte.pdf"
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// ── SII ─────────────────────────────────────────────────────────────────────

// ValidarSII envía el documento al SII.
func (c *Client) ValidarSII(ctx context.Context, id int64) (*dto.SIIResult, error) {
	var out dto.SIIActionResponse
	if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("%s%d/validar-sii/", documentosPath, id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// EstadoSII consulta el estado por track id.
func (c *Client) EstadoSII(ctx context.Context, id int64) (*dto.SIIResult, error) {
	var out dto.SIIActionResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s%d/estado-sii/", documentosPath, id), &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Contribuyente datos públicos de un RUT.
func (c *Client) Contribuyente(ctx context.Context, rut string) (*dto.ContribuyenteResponse, error) {
	var out dto.ContribuyenteResponse
	if err := c.getJSON(ctx, "/api/v1/sii/contribuyente/?rut="+url.QueryEscape(rut), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Chat ────────────────────────────────────────────────────────────────────

// Mensajes del chat según el código HTTP.
const (
	ChatMsgUnauthorized = "Tu sesión expiró. Vuelve a iniciar sesión."
	ChatMsgForbidden    = "No tienes permiso para usar el chat de ayuda."
	ChatMsgTooLong      = "Tu mensaje es demasiado largo. Resúmelo en menos de 1000 caracteres."
	ChatMsgRateLimited  = "Estás enviando mensajes muy rápido. Espera unos segundos."
	ChatMsgGeneric      = "Lo siento, no pude procesar tu solicitud."
	ChatMsgNetwork      = "Error de red. Intenta nuevamente."
)

// ChatError error del chat con el mensaje listo para mostrar.
type ChatError struct {
	Status  int
	Message string
	Err     error
}

func (e *ChatError) Error() string { return e.Message }
func (e *ChatError) Unwrap() error { return e.Err }

// ChatMessage mensaje para mostrar según el código HTTP.
func ChatMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ChatMsgUnauthorized
	case http.StatusForbidden:
		return ChatMsgForbidden
	case http.StatusRequestEntityTooLarge:
		return ChatMsgTooLong
	case http.StatusTooManyRequests:
		return ChatMsgRateLimited
	default:
		return ChatMsgGeneric
	}
}

// Chat envía un mensaje al chat de ayuda con un tope de 25 s.
func (c *Client) Chat(ctx context.Context, message string) (*dto.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, ChatTimeout)
	defer cancel()

	var out dto.ChatResponse
	err := c.sendJSON(ctx, http.MethodPost, chatPath, dto.ChatRequest{Message: message}, &out)
	if err == nil {
		if out.Reply == "" {
			out.Reply = ChatMsgGeneric
		}
		return &out, nil
	}
	if st := StatusOf(err); st != 0 {
		return nil, &ChatError{Status: st, Message: ChatMessage(st), Err: err}
	}
	return nil, &ChatError{Message: ChatMsgNetwork, Err: err}
}

// ── Transporte ──────────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decodificar %s: %w", path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body, ct = bytes.NewReader(raw), "application/json"
	}
	resp, err := c.do(ctx, method, path, body, ct)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decodificar %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if sz, ok := body.(interface{ Size() int64 }); ok {
		req.ContentLength = sz.Size()
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if !safeMethod(method) {
		tok, err := c.CSRFToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(csrfHeader, tok)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("request")
	return resp, nil
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// checkStatus convierte una respuesta no 2xx en *HTTPError leyendo detail o message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	he := &HTTPError{Status: resp.StatusCode}
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		he.Detail = body.Detail
		if he.Detail == "" {
			he.Detail = body.Message
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 300 {
		he.Detail = s
	}
	return he
}
