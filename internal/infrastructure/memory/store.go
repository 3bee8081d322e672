// Package memory implementa los repositorios en memoria. Se usa con DB_DRIVER=memory
// y en los tests de los casos de uso.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

// Store guarda documentos y trazas SII. Los documentos se copian al entrar y al salir.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	docs   map[int64]entity.Document
	txs    []entity.SIITransaction
	nextID int64
	txID   int64
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{docs: make(map[int64]entity.Document)}
}

var (
	_ repository.DocumentRepository       = (*Store)(nil)
	_ repository.SummaryRepository        = (*Store)(nil)
	_ repository.SIITransactionRepository = txRepo{}
)

func (s *Store) Create(_ context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.EmpresaID == doc.EmpresaID && doc.HashSHA256 != "" && d.HashSHA256 == doc.HashSHA256 {
			return domain.ErrDuplicate
		}
	}
	s.nextID++
	doc.ID = s.nextID
	if doc.CreadoEn.IsZero() {
		doc.CreadoEn = time.Now()
	}
	doc.ActualizadoEn = doc.CreadoEn
	s.docs[doc.ID] = *doc
	return nil
}

func (s *Store) GetByID(_ context.Context, empresaID string, id int64) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.EmpresaID != empresaID {
		return nil, nil
	}
	return &d, nil
}

func (s *Store) GetMany(_ context.Context, empresaID string, ids []int64) ([]*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.docs[id]; ok && d.EmpresaID == empresaID {
			out = append(out, &d)
		}
	}
	return out, nil
}

func (s *Store) List(_ context.Context, empresaID string, f entity.DocumentFilter) ([]*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Document
	for _, d := range s.docs {
		if d.EmpresaID != empresaID || !matches(d, f) {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreadoEn.Equal(out[j].CreadoEn) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreadoEn.After(out[j].CreadoEn)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(d entity.Document, f entity.DocumentFilter) bool {
	if f.DateFrom != nil && (d.FechaEmision == nil || d.FechaEmision.Before(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && (d.FechaEmision == nil || d.FechaEmision.After(*f.DateTo)) {
		return false
	}
	if f.TipoPrefix != "" && !strings.HasPrefix(d.TipoDocumento, f.TipoPrefix) {
		return false
	}
	if f.TipoExact != "" && d.TipoDocumento != f.TipoExact {
		return false
	}
	if len(f.Estados) > 0 {
		found := false
		for _, e := range f.Estados {
			if d.Estado == e {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		q := clfmt.Fold(f.Search)
		hay := clfmt.Fold(strings.Join([]string{d.Folio, d.RutProveedor, d.RazonSocialProveedor, d.NombreArchivo}, " "))
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (s *Store) UpdateExtraction(_ context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Estado = doc.Estado
	cur.TipoDocumento = doc.TipoDocumento
	cur.Folio = doc.Folio
	cur.RutProveedor = doc.RutProveedor
	cur.RazonSocialProveedor = doc.RazonSocialProveedor
	cur.FechaEmision = doc.FechaEmision
	cur.MontoNeto = doc.MontoNeto
	cur.MontoExento = doc.MontoExento
	cur.IVA = doc.IVA
	cur.Total = doc.Total
	cur.ActualizadoEn = time.Now()
	s.docs[doc.ID] = cur
	return nil
}

func (s *Store) UpdateSII(_ context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Estado = doc.Estado
	cur.ValidadoSII = doc.ValidadoSII
	cur.SIIEstado = doc.SIIEstado
	cur.SIITrackID = doc.SIITrackID
	cur.SIIGlosa = doc.SIIGlosa
	cur.SIIValidadoEn = doc.SIIValidadoEn
	cur.ActualizadoEn = time.Now()
	s.docs[doc.ID] = cur
	return nil
}

func (s *Store) Delete(_ context.Context, empresaID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok && d.EmpresaID == empresaID {
		delete(s.docs, id)
	}
	return nil
}

func (s *Store) ListByEstado(_ context.Context, estado entity.Estado, limit int) ([]*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Document
	for _, d := range s.docs {
		if d.Estado == estado {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Resumen ──────────────────────────────────────────────────────────────────

func (s *Store) CountByEstado(_ context.Context, empresaID string) (map[entity.Estado]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[entity.Estado]int{}
	for _, d := range s.docs {
		if d.EmpresaID == empresaID {
			out[d.Estado]++
		}
	}
	return out, nil
}

func (s *Store) CountByTipo(_ context.Context, empresaID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, d := range s.docs {
		if d.EmpresaID == empresaID && d.TipoDocumento != "" {
			out[d.TipoDocumento]++
		}
	}
	return out, nil
}

func (s *Store) CountBySIIEstado(_ context.Context, empresaID string) (map[entity.SIIEstado]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[entity.SIIEstado]int{}
	for _, d := range s.docs {
		if d.EmpresaID == empresaID && d.SIIEstado != "" {
			out[d.SIIEstado]++
		}
	}
	return out, nil
}

func (s *Store) TotalBetween(_ context.Context, empresaID string, from, to time.Time) (entity.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := entity.DocumentSummary{TotalMes: decimal.Zero}
	for _, d := range s.docs {
		if d.EmpresaID != empresaID || d.FechaEmision == nil {
			continue
		}
		if d.FechaEmision.Before(from) || d.FechaEmision.After(to) {
			continue
		}
		sum.CantMes++
		if d.Total.Valid {
			sum.TotalMes = sum.TotalMes.Add(d.Total.Decimal)
		}
	}
	return sum, nil
}

// ── Trazas SII ───────────────────────────────────────────────────────────────

type txRepo struct{ s *Store }

func (r txRepo) Create(_ context.Context, tx *entity.SIITransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txID++
	tx.ID = r.s.txID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	r.s.txs = append(r.s.txs, *tx)
	return nil
}

// SIITransactions repositorio de trazas SII sobre el mismo store.
func (s *Store) SIITransactions() repository.SIITransactionRepository {
	return txRepo{s: s}
}

// Transactions devuelve una copia de las trazas registradas.
func (s *Store) Transactions() []entity.SIITransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.SIITransaction(nil), s.txs...)
}

// RunSII ejecuta fn de forma serializada; si fn falla se restaura el estado previo.
func (s *Store) RunSII(ctx context.Context, fn func(docs repository.DocumentRepository, txs repository.SIITransactionRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	docs := make(map[int64]entity.Document, len(s.docs))
	for k, v := range s.docs {
		docs[k] = v
	}
	txs := append([]entity.SIITransaction(nil), s.txs...)
	s.mu.Unlock()

	if err := fn(s, txRepo{s: s}); err != nil {
		s.mu.Lock()
		s.docs = docs
		s.txs = txs
		s.mu.Unlock()
		return err
	}
	return nil
}
