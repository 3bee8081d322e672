package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
)

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func registroValido() dto.RegisterRequest {
	return dto.RegisterRequest{
		RutEmpresa:  "77.444.555-2",
		RazonSocial: "Acme SpA",
		Name:        "Ana",
		Email:       "ana@acme.cl",
		Password:    "Boleta2024x",
	}
}

func TestAuth_RegistroLoginYMe(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/registro", registroValido()), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reg := decode[dto.RegisterResponse](t, resp)
	assert.Equal(t, "77444555-2", reg.Company.Rut)

	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/registro", registroValido()), "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "ana@acme.cl", Password: "Boleta2024x"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	require.NotEmpty(t, login.Token)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, reg.User.ID, me.ID)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/empresa/", nil), "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Acme SpA", decode[dto.CompanyResponse](t, resp).Name)

	// el token emitido sirve para el resto de la API
	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documentos/", nil), "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_LoginInvalido(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "x@acme.cl", Password: "Boleta2024x"}), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "credenciales inválidas", body.Message)

	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "x@acme.cl"}), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuth_RegistroPasswordDebil(t *testing.T) {
	env := newTestEnv(t, false)
	in := registroValido()
	in.Password = "password1"
	resp := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/registro", in), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUsuarios_SoloAdmin(t *testing.T) {
	env := newTestEnv(t, false)
	resp := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/registro", registroValido()), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "ana@acme.cl", Password: "Boleta2024x"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	admin := "Bearer " + decode[dto.LoginResponse](t, resp).Token

	nuevo := dto.CreateUserRequest{Email: "luis@acme.cl", Password: "Factura77z", Role: "contador"}
	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/usuarios/", nuevo), admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/usuarios/", nil), admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.UserResponse](t, resp), 2)

	resp = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "luis@acme.cl", Password: "Factura77z"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	contador := "Bearer " + decode[dto.LoginResponse](t, resp).Token

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/usuarios/", nil), contador)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
