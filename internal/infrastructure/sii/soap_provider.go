package sii

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	appsii "github.com/jhoicas/sgidt-documentos/internal/application/sii"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// EnvCert ambiente de certificación (maullin).
	EnvCert = "cert"
	// EnvProd ambiente de producción (palena).
	EnvProd = "prod"

	queryEstDteCert = "https://maullin.sii.cl/DTEWS/QueryEstDte.jws"
	queryEstDteProd = "https://palena.sii.cl/DTEWS/QueryEstDte.jws"

	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

var _ appsii.Provider = (*SOAPProvider)(nil)

// SOAPConfig parámetros del web service QueryEstDte.
type SOAPConfig struct {
	Environment    string // cert | prod
	Token          string // token de sesión obtenido con la semilla firmada
	RutConsultante string
	Endpoint       string // opcional: reemplaza la URL del ambiente
	HTTPClient     *http.Client
}

// SOAPProvider consulta el estado de DTE recibidos con getEstDte.
// El SII no entrega track id para esta consulta: se usa el número de atención.
type SOAPProvider struct {
	cfg        SOAPConfig
	endpoint   string
	httpClient *http.Client
}

// NewSOAPProvider construye el cliente SOAP con un timeout de red de 60 s.
func NewSOAPProvider(cfg SOAPConfig) (*SOAPProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		switch cfg.Environment {
		case EnvProd:
			endpoint = queryEstDteProd
		case EnvCert, "":
			endpoint = queryEstDteCert
		default:
			return nil, fmt.Errorf("soap: entorno desconocido %q (usar 'cert' o 'prod')", cfg.Environment)
		}
	}
	if !rut.IsValid(cfg.RutConsultante) {
		return nil, fmt.Errorf("soap: RUT consultante inválido %q", cfg.RutConsultante)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &SOAPProvider{cfg: cfg, endpoint: endpoint, httpClient: hc}, nil
}

// estDte respuesta interna de getEstDte (RESP_HDR).
type estDte struct {
	Estado      string
	GlosaEstado string
	ErrCode     string
	GlosaErr    string
	NumAtencion string
}

func (p *SOAPProvider) ValidarDTE(ctx context.Context, req appsii.DTERequest) (*appsii.ValidarResult, error) {
	r, err := p.getEstDte(ctx, req)
	if err != nil {
		return nil, err
	}
	if estadoFromCode(r.Estado) != entity.SIIAceptado {
		return &appsii.ValidarResult{OK: false, Glosa: "RECHAZADO: " + r.glosa()}, nil
	}
	trackID := r.NumAtencion
	if trackID == "" {
		trackID = fmt.Sprintf("%d-%d", req.TipoDTE, req.Folio)
	}
	return &appsii.ValidarResult{OK: true, TrackID: trackID, Glosa: r.glosa()}, nil
}

func (p *SOAPProvider) EstadoDTE(ctx context.Context, _ string, req appsii.DTERequest) (*appsii.EstadoResult, error) {
	r, err := p.getEstDte(ctx, req)
	if err != nil {
		return nil, err
	}
	return &appsii.EstadoResult{Estado: estadoFromCode(r.Estado), Glosa: r.glosa()}, nil
}

// ConsultaContribuyente no está disponible como web service.
func (p *SOAPProvider) ConsultaContribuyente(context.Context, string) (*appsii.Contribuyente, error) {
	return nil, fmt.Errorf("%w: consulta de contribuyente no disponible en el web service SII", domain.ErrUnsupported)
}

func (r estDte) glosa() string {
	if r.GlosaEstado != "" {
		return r.GlosaEstado
	}
	return r.GlosaErr
}

// estadoFromCode traduce el código ESTADO de getEstDte.
func estadoFromCode(code string) entity.SIIEstado {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "DOK":
		return entity.SIIAceptado
	case "FAU":
		return entity.SIINoEncontrado
	case "DNK", "FNA", "FAN", "EMP", "TMD", "TMC", "MMD", "MMC", "AND", "MAN":
		return entity.SIIRechazado
	default:
		return entity.SIIEnProceso
	}
}

// ── getEstDte ─────────────────────────────────────────────────────────────────

func (p *SOAPProvider) getEstDte(ctx context.Context, req appsii.DTERequest) (*estDte, error) {
	payload, err := p.buildEnvelope(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", "")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("soap: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return parseEstDteResponse(raw)
}

func (p *SOAPProvider) buildEnvelope(req appsii.DTERequest) ([]byte, error) {
	consBody, consDV, err := rut.Split(p.cfg.RutConsultante)
	if err != nil {
		return nil, fmt.Errorf("soap: rut consultante: %w", err)
	}
	ciaBody, ciaDV, err := rut.Split(req.ReceptorRut)
	if err != nil {
		return nil, fmt.Errorf("%w: rut emisor del documento: %v", domain.ErrInvalidInput, err)
	}
	recBody, recDV, err := rut.Split(req.EmisorRut)
	if err != nil {
		return nil, fmt.Errorf("%w: rut receptor: %v", domain.ErrInvalidInput, err)
	}
	fecha, err := time.Parse("2006-01-02", req.FechaEmision)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha de emisión %q", domain.ErrInvalidInput, req.FechaEmision)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapNS)
	env.CreateElement("soapenv:Header")
	op := env.CreateElement("soapenv:Body").CreateElement("getEstDte")

	fields := []struct{ k, v string }{
		{"RutConsultante", consBody},
		{"DvConsultante", string(consDV)},
		{"RutCompania", ciaBody},
		{"DvCompania", string(ciaDV)},
		{"RutReceptor", recBody},
		{"DvReceptor", string(recDV)},
		{"TipoDte", strconv.Itoa(req.TipoDTE)},
		{"FolioDte", strconv.FormatInt(req.Folio, 10)},
		{"FechaEmisionDte", fecha.Format("02012006")},
		{"MontoDte", strconv.FormatInt(req.MontoTotal, 10)},
		{"Token", p.cfg.Token},
	}
	for _, f := range fields {
		op.CreateElement(f.k).SetText(f.v)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// parseEstDteResponse extrae RESP_HDR. getEstDteReturn trae el XML de respuesta escapado
// como texto, así que se parsea en dos pasos.
func parseEstDteResponse(raw []byte) (*estDte, error) {
	outer := etree.NewDocument()
	outer.ReadSettings.CharsetReader = latin1Reader
	if err := outer.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("soap: parsear respuesta: %w", err)
	}
	if fault := findByTag(outer.Root(), "Fault"); fault != nil {
		return nil, fmt.Errorf("soap: fault: %s", textOf(fault, "faultstring"))
	}
	ret := findByTag(outer.Root(), "getEstDteReturn")
	if ret == nil {
		return nil, fmt.Errorf("soap: respuesta sin getEstDteReturn")
	}

	// El texto interno ya viene decodificado aunque declare ISO-8859-1.
	inner := etree.NewDocument()
	inner.ReadSettings.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := inner.ReadFromString(strings.TrimSpace(ret.Text())); err != nil {
		return nil, fmt.Errorf("soap: parsear RESPUESTA: %w", err)
	}
	hdr := findByTag(inner.Root(), "RESP_HDR")
	if hdr == nil {
		return nil, fmt.Errorf("soap: RESPUESTA sin RESP_HDR")
	}
	r := &estDte{
		Estado:      textOf(hdr, "ESTADO"),
		GlosaEstado: textOf(hdr, "GLOSA_ESTADO"),
		ErrCode:     textOf(hdr, "ERR_CODE"),
		GlosaErr:    textOf(hdr, "GLOSA_ERR"),
		NumAtencion: textOf(hdr, "NUM_ATENCION"),
	}
	// Códigos numéricos o negativos son errores de la consulta (token, RUT consultante).
	if r.Estado == "" || strings.HasPrefix(r.Estado, "-") || isNumeric(r.Estado) {
		return nil, fmt.Errorf("%w: SII estado %s: %s", domain.ErrProviderError, r.Estado, r.glosa())
	}
	return r, nil
}

// latin1Reader decodifica las respuestas ISO-8859-1 del SII.
func latin1Reader(label string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "iso8859-1", "latin1", "windows-1252":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "utf-8", "":
		return r, nil
	}
	return nil, fmt.Errorf("soap: charset %q no soportado", label)
}

// findByTag busca en profundidad por nombre local, sin importar el prefijo.
func findByTag(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	if e.Tag == tag {
		return e
	}
	for _, c := range e.ChildElements() {
		if f := findByTag(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func textOf(e *etree.Element, tag string) string {
	if f := findByTag(e, tag); f != nil {
		return strings.TrimSpace(f.Text())
	}
	return ""
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
