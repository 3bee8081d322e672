package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository sobre PostgreSQL (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, empresa_id, subido_por, tipo_documento, folio, rut_proveedor, razon_social_proveedor,
	fecha_emision, monto_neto, monto_exento, iva, total, estado,
	validado_sii, sii_estado, sii_track_id, sii_glosa, sii_validado_en,
	archivo_key, nombre_archivo, hash_sha256, mime_type, tamano_bytes, paginas, origen,
	creado_en, actualizado_en`

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	var estado, siiEstado string
	err := row.Scan(
		&d.ID, &d.EmpresaID, &d.SubidoPor, &d.TipoDocumento, &d.Folio, &d.RutProveedor, &d.RazonSocialProveedor,
		&d.FechaEmision, &d.MontoNeto, &d.MontoExento, &d.IVA, &d.Total, &estado,
		&d.ValidadoSII, &siiEstado, &d.SIITrackID, &d.SIIGlosa, &d.SIIValidadoEn,
		&d.ArchivoKey, &d.NombreArchivo, &d.HashSHA256, &d.MimeType, &d.TamanoBytes, &d.Paginas, &d.Origen,
		&d.CreadoEn, &d.ActualizadoEn,
	)
	if err != nil {
		return nil, err
	}
	d.Estado = entity.Estado(estado)
	d.SIIEstado = entity.SIIEstado(siiEstado)
	return &d, nil
}

func collectDocuments(rows pgx.Rows) ([]*entity.Document, error) {
	defer rows.Close()
	var out []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create persiste el documento; el par (empresa_id, hash_sha256) es único.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documentos (empresa_id, subido_por, tipo_documento, folio, rut_proveedor, razon_social_proveedor,
			fecha_emision, monto_neto, monto_exento, iva, total, estado,
			archivo_key, nombre_archivo, hash_sha256, mime_type, tamano_bytes, paginas, origen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, creado_en, actualizado_en`
	err := r.q.QueryRow(ctx, query,
		doc.EmpresaID, doc.SubidoPor, doc.TipoDocumento, doc.Folio, doc.RutProveedor, doc.RazonSocialProveedor,
		doc.FechaEmision, doc.MontoNeto, doc.MontoExento, doc.IVA, doc.Total, string(doc.Estado),
		doc.ArchivoKey, doc.NombreArchivo, doc.HashSHA256, doc.MimeType, doc.TamanoBytes, doc.Paginas, doc.Origen,
	).Scan(&doc.ID, &doc.CreadoEn, &doc.ActualizadoEn)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert documento: %w", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, empresaID string, id int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documentos WHERE empresa_id = $1 AND id = $2`
	d, err := scanDocument(r.q.QueryRow(ctx, query, empresaID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get documento: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) GetMany(ctx context.Context, empresaID string, ids []int64) ([]*entity.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + documentColumns + ` FROM documentos WHERE empresa_id = $1 AND id = ANY($2) ORDER BY id`
	rows, err := r.q.Query(ctx, query, empresaID, ids)
	if err != nil {
		return nil, fmt.Errorf("get documentos: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan documentos: %w", err)
	}
	return docs, nil
}

// listQuery arma el WHERE dinámico del listado; los valores van siempre como parámetros.
func listQuery(empresaID string, f entity.DocumentFilter) (string, []any) {
	conds := []string{"empresa_id = $1"}
	args := []any{empresaID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		conds = append(conds, fmt.Sprintf(
			"(folio ILIKE %[1]s OR rut_proveedor ILIKE %[1]s OR razon_social_proveedor ILIKE %[1]s OR nombre_archivo ILIKE %[1]s)", p))
	}
	if f.DateFrom != nil {
		conds = append(conds, "fecha_emision >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "fecha_emision <= "+arg(*f.DateTo))
	}
	if f.TipoPrefix != "" {
		conds = append(conds, "tipo_documento LIKE "+arg(f.TipoPrefix+"%"))
	}
	if f.TipoExact != "" {
		conds = append(conds, "tipo_documento = "+arg(f.TipoExact))
	}
	if len(f.Estados) > 0 {
		estados := make([]string, len(f.Estados))
		for i, e := range f.Estados {
			estados[i] = string(e)
		}
		conds = append(conds, "estado = ANY("+arg(estados)+")")
	}

	query := `SELECT ` + documentColumns + ` FROM documentos WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY creado_en DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}
	return query, args
}

func (r *DocumentRepo) List(ctx context.Context, empresaID string, f entity.DocumentFilter) ([]*entity.Document, error) {
	query, args := listQuery(empresaID, f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documentos: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan documentos: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepo) UpdateExtraction(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documentos SET estado = $2, tipo_documento = $3, folio = $4, rut_proveedor = $5,
			razon_social_proveedor = $6, fecha_emision = $7, monto_neto = $8, monto_exento = $9,
			iva = $10, total = $11, actualizado_en = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, doc.ID, string(doc.Estado), doc.TipoDocumento, doc.Folio, doc.RutProveedor,
		doc.RazonSocialProveedor, doc.FechaEmision, doc.MontoNeto, doc.MontoExento, doc.IVA, doc.Total)
	if err != nil {
		return fmt.Errorf("update extracción: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) UpdateSII(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documentos SET estado = $2, validado_sii = $3, sii_estado = $4, sii_track_id = $5,
			sii_glosa = $6, sii_validado_en = $7, actualizado_en = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, doc.ID, string(doc.Estado), doc.ValidadoSII, string(doc.SIIEstado),
		doc.SIITrackID, doc.SIIGlosa, doc.SIIValidadoEn)
	if err != nil {
		return fmt.Errorf("update sii: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, empresaID string, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM documentos WHERE id = $1 AND empresa_id = $2`, id, empresaID); err != nil {
		return fmt.Errorf("delete documento: %w", err)
	}
	return nil
}

func (r *DocumentRepo) ListByEstado(ctx context.Context, estado entity.Estado, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documentos WHERE estado = $1 ORDER BY id LIMIT $2`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, query, string(estado), limit)
	if err != nil {
		return nil, fmt.Errorf("list por estado: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan documentos: %w", err)
	}
	return docs, nil
}
