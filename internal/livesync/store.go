package livesync

import (
	"sync"

	"github.com/jhoicas/sgidt-documentos/internal/client"
)

// Change fila parchada y sus celdas modificadas.
type Change struct {
	Row   client.Row
	Cells []string
}

// Store cache id -> fila del último listado, en el orden del servidor.
type Store struct {
	mu      sync.RWMutex
	order   []int64
	rows    map[int64]client.Row
	details map[int64]map[string]any
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{rows: map[int64]client.Row{}, details: map[int64]map[string]any{}}
}

// Replace reemplaza el cache completo (y descarta los detalles).
func (s *Store) Replace(rows []client.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = make([]int64, 0, len(rows))
	s.rows = make(map[int64]client.Row, len(rows))
	s.details = map[int64]map[string]any{}
	for _, r := range rows {
		if _, dup := s.rows[r.ID]; !dup {
			s.order = append(s.order, r.ID)
		}
		s.rows[r.ID] = r
	}
}

// Rows copia de las filas en orden.
func (s *Store) Rows() []client.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

// Get fila cacheada.
func (s *Store) Get(id int64) (client.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	return r, ok
}

// Len cantidad de filas.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// PendingIDs ids cuyo último estado conocido es pendiente o procesando.
func (s *Store) PendingIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, id := range s.order {
		if s.rows[id].IsPending() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Patch aplica los parches a las filas cacheadas. Ids fuera del cache se ignoran
// y las filas sin parche quedan intactas.
func (s *Store) Patch(patches []client.RowPatch) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Change
	for _, p := range patches {
		row, ok := s.rows[p.ID]
		if !ok {
			continue
		}
		cells := p.Apply(&row)
		if len(cells) == 0 {
			continue
		}
		s.rows[p.ID] = row
		delete(s.details, p.ID)
		out = append(out, Change{Row: row, Cells: cells})
	}
	return out
}

// Detail registro completo ya traído, si existe.
func (s *Store) Detail(id int64) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.details[id]
	return d, ok
}

// SetDetail guarda el registro completo de una fila que sigue en el cache.
func (s *Store) SetDetail(id int64, d map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; ok {
		s.details[id] = d
	}
}
