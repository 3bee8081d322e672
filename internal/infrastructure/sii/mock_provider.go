// Package sii contiene los adaptadores hacia el Servicio de Impuestos Internos.
package sii

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appsii "github.com/jhoicas/sgidt-documentos/internal/application/sii"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

var _ appsii.Provider = (*MockProvider)(nil)

type mockDTE struct {
	req       appsii.DTERequest
	estado    entity.SIIEstado
	glosa     string
	consultas int
	creado    time.Time
}

// MockProvider simula el ciclo de vida de un DTE en el SII:
// validar deja el DTE en proceso y, desde la tercera consulta de estado, se resuelve
// como aceptado (90 %) o rechazado con reparos (10 %).
type MockProvider struct {
	mu             sync.Mutex
	dtes           map[string]*mockDTE
	contribuyentes map[string]appsii.Contribuyente
	rand           func() float64
}

// NewMockProvider crea el mock con dos contribuyentes de ejemplo.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		dtes: make(map[string]*mockDTE),
		contribuyentes: map[string]appsii.Contribuyente{
			"76.333.222-5": {
				Rut:                "76.333.222-5",
				RazonSocial:        "Comercializadora de Software Ltda.",
				ActividadPrincipal: "VENTA AL POR MENOR DE OTROS PRODUCTOS EN COMERCIOS ESPECIALIZADOS",
				Estado:             "ACTIVO",
			},
			"77.444.555-2": {
				Rut:                "77.444.555-2",
				RazonSocial:        "Importadora Rápida S.A.",
				ActividadPrincipal: "VENTA DE PARTES, PIEZAS Y ACCESORIOS PARA VEHÍCULOS AUTOMOTORES",
				Estado:             "INICIO DE ACTIVIDADES CANCELADO",
			},
		},
		rand: rand.Float64,
	}
}

// WithRand fija la fuente aleatoria (tests).
func (m *MockProvider) WithRand(fn func() float64) *MockProvider {
	m.rand = fn
	return m
}

func (m *MockProvider) ValidarDTE(_ context.Context, req appsii.DTERequest) (*appsii.ValidarResult, error) {
	if len(strings.TrimSpace(req.ReceptorRut)) < 3 {
		return &appsii.ValidarResult{OK: false, Glosa: "RECHAZADO: El RUT del receptor no es válido."}, nil
	}
	if req.MontoTotal <= 0 {
		return &appsii.ValidarResult{OK: false, Glosa: "RECHAZADO: El monto total debe ser mayor a cero."}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rand() < 0.1 {
		return &appsii.ValidarResult{OK: false, Glosa: "RECHAZADO: Error interno del SII simulado."}, nil
	}
	trackID := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	m.dtes[trackID] = &mockDTE{
		req:    req,
		estado: entity.SIIEnProceso,
		glosa:  "Documento recibido y en proceso de validación.",
		creado: time.Now(),
	}
	return &appsii.ValidarResult{
		OK:      true,
		TrackID: trackID,
		Glosa:   "Documento recibido por el SII. Consulte el estado con el track_id.",
	}, nil
}

func (m *MockProvider) EstadoDTE(_ context.Context, trackID string, _ appsii.DTERequest) (*appsii.EstadoResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dte, ok := m.dtes[trackID]
	if !ok {
		return &appsii.EstadoResult{Estado: entity.SIINoEncontrado, Glosa: "Track ID no existe en los registros del SII."}, nil
	}
	dte.consultas++
	if dte.estado == entity.SIIEnProceso && dte.consultas > 2 {
		if m.rand() < 0.9 {
			dte.estado = entity.SIIAceptado
			dte.glosa = "DTE Aceptado por el SII."
		} else {
			dte.estado = entity.SIIRechazado
			dte.glosa = "DTE Rechazado con Reparos: Monto total no coincide con detalle."
		}
	}
	return &appsii.EstadoResult{Estado: dte.estado, Glosa: dte.glosa}, nil
}

func (m *MockProvider) ConsultaContribuyente(_ context.Context, rut string) (*appsii.Contribuyente, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contribuyentes[rut]
	if !ok {
		return nil, fmt.Errorf("%w: contribuyente %s", domain.ErrNotFound, rut)
	}
	return &c, nil
}
