package sii_test

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	infrasii "github.com/jhoicas/sgidt-documentos/internal/infrastructure/sii"
)

func soapReply(estado, glosa, atencion string) string {
	inner := `<SII:RESPUESTA xmlns:SII="http://www.sii.cl/XMLSchema"><SII:RESP_HDR>` +
		`<SII:ESTADO>` + estado + `</SII:ESTADO><SII:GLOSA_ESTADO>` + glosa + `</SII:GLOSA_ESTADO>` +
		`<SII:ERR_CODE></SII:ERR_CODE><SII:NUM_ATENCION>` + atencion + `</SII:NUM_ATENCION>` +
		`</SII:RESP_HDR></SII:RESPUESTA>`
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>` +
		`<ns1:getEstDteResponse xmlns:ns1="http://DefaultNamespace"><getEstDteReturn>` +
		html.EscapeString(inner) +
		`</getEstDteReturn></ns1:getEstDteResponse></soapenv:Body></soapenv:Envelope>`
}

func newSOAP(t *testing.T, handler http.HandlerFunc) *infrasii.SOAPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := infrasii.NewSOAPProvider(infrasii.SOAPConfig{
		Token:          "TOKEN123",
		RutConsultante: "12.345.678-5",
		Endpoint:       srv.URL,
	})
	require.NoError(t, err)
	return p
}

func TestSOAP_ValidarDOK(t *testing.T) {
	var body string
	p := newSOAP(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = io.WriteString(w, soapReply("DOK", "Documento Recibido por el SII. Datos Coinciden con los Registrados", "7788"))
	})

	res, err := p.ValidarDTE(context.Background(), valid())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "7788", res.TrackID)

	assert.Contains(t, body, "<RutConsultante>12345678</RutConsultante>")
	assert.Contains(t, body, "<DvConsultante>5</DvConsultante>")
	assert.Contains(t, body, "<RutCompania>76333222</RutCompania>")
	assert.Contains(t, body, "<FechaEmisionDte>02052024</FechaEmisionDte>")
	assert.Contains(t, body, "<Token>TOKEN123</Token>")
}

func TestSOAP_EstadoCodigos(t *testing.T) {
	estado := "DNK"
	p := newSOAP(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, soapReply(estado, "Datos no coinciden", ""))
	})

	st, err := p.EstadoDTE(context.Background(), "x", valid())
	require.NoError(t, err)
	assert.Equal(t, entity.SIIRechazado, st.Estado)

	estado = "FAU"
	st, err = p.EstadoDTE(context.Background(), "x", valid())
	require.NoError(t, err)
	assert.Equal(t, entity.SIINoEncontrado, st.Estado)

	estado = "-3"
	_, err = p.EstadoDTE(context.Background(), "x", valid())
	assert.ErrorIs(t, err, domain.ErrProviderError)
}

func TestSOAP_Fault(t *testing.T) {
	p := newSOAP(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><soapenv:Fault><faultcode>x</faultcode><faultstring>token vencido</faultstring></soapenv:Fault></soapenv:Body></soapenv:Envelope>`)
	})
	_, err := p.ValidarDTE(context.Background(), valid())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token vencido")
}

func TestNewSOAPProvider_Validaciones(t *testing.T) {
	_, err := infrasii.NewSOAPProvider(infrasii.SOAPConfig{Environment: "qa", RutConsultante: "12.345.678-5"})
	assert.Error(t, err)
	_, err = infrasii.NewSOAPProvider(infrasii.SOAPConfig{RutConsultante: "12.345.678-0"})
	assert.Error(t, err)
}

func TestSOAP_RespuestaLatin1(t *testing.T) {
	reply := strings.Replace(soapReply("DOK", "Recepción conforme", "1"), `encoding="UTF-8"`, `encoding="ISO-8859-1"`, 1)
	latin1, err := charmap.ISO8859_1.NewEncoder().String(reply)
	require.NoError(t, err)
	p := newSOAP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=ISO-8859-1")
		_, _ = io.WriteString(w, latin1)
	})

	st, err := p.EstadoDTE(context.Background(), "x", valid())
	require.NoError(t, err)
	assert.Equal(t, "Recepción conforme", st.Glosa)
}
