package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/internal/domain/repository"
)

// maxListRows tope del listado (la tabla no pagina).
const maxListRows = 500

// UploadFile archivo recibido en el multipart (files[]).
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (multipart.File, error)
}

// UseCase casos de uso de documentos: listado, detalle, progreso, carga y reporte.
type UseCase struct {
	repo    repository.DocumentRepository
	storage FileStorage
	pages   PageCounter
	report  ReportGenerator
	log     zerolog.Logger
	now     func() time.Time
}

// NewUseCase construye el caso de uso. report puede ser nil (reporte deshabilitado).
func NewUseCase(repo repository.DocumentRepository, storage FileStorage, pages PageCounter, report ReportGenerator, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, storage: storage, pages: pages, report: report, log: log, now: time.Now}
}

func (uc *UseCase) urlFor(key string) string {
	if uc.storage == nil {
		return ""
	}
	return uc.storage.URL(key)
}

// List devuelve las filas de la empresa que cumplen el filtro, ordenadas por creado_en desc.
func (uc *UseCase) List(ctx context.Context, empresaID string, p FilterParams) (*dto.DocumentListResponse, error) {
	if empresaID == "" {
		return nil, domain.ErrNoEmpresa
	}
	f := ParseFilter(p)
	f.Limit = maxListRows
	docs, err := uc.repo.List(ctx, empresaID, f)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	out := &dto.DocumentListResponse{Results: make([]dto.DocumentRow, 0, len(docs))}
	for _, d := range docs {
		out.Results = append(out.Results, ToRow(d, uc.urlFor))
	}
	out.Count = len(out.Results)
	return out, nil
}

// Get devuelve el detalle completo; domain.ErrNotFound si no existe en la empresa.
func (uc *UseCase) Get(ctx context.Context, empresaID string, id int64) (*dto.DocumentDetail, error) {
	d, err := uc.find(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	det := ToDetail(d, uc.urlFor)
	return &det, nil
}

// Progress devuelve la fila actual de un documento.
func (uc *UseCase) Progress(ctx context.Context, empresaID string, id int64) (*dto.ProgressResponse, error) {
	d, err := uc.find(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	return &dto.ProgressResponse{OK: true, Documento: ToRow(d, uc.urlFor)}, nil
}

// ProgressBatch devuelve las filas de los ids pedidos ("1,2,3").
// Ids no numéricos o de otra empresa se omiten; sin ids válidos la lista va vacía.
func (uc *UseCase) ProgressBatch(ctx context.Context, empresaID, rawIDs string) (*dto.ProgressBatchResponse, error) {
	if empresaID == "" {
		return nil, domain.ErrNoEmpresa
	}
	ids := ParseIDs(rawIDs)
	out := &dto.ProgressBatchResponse{OK: true, Documentos: []dto.DocumentRow{}}
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := uc.repo.GetMany(ctx, empresaID, ids)
	if err != nil {
		return nil, fmt.Errorf("progress-batch: %w", err)
	}
	for _, d := range docs {
		out.Documentos = append(out.Documentos, ToRow(d, uc.urlFor))
	}
	return out, nil
}

// Upload guarda cada archivo y crea el documento en estado pendiente.
// Un archivo con el mismo hash ya cargado en la empresa cuenta como omitido;
// los errores por archivo no cortan el lote.
func (uc *UseCase) Upload(ctx context.Context, empresaID, userID string, files []UploadFile) (*dto.UploadResult, error) {
	if empresaID == "" {
		return nil, domain.ErrNoEmpresa
	}
	res := &dto.UploadResult{Errors: []string{}}
	if len(files) == 0 {
		res.Errors = append(res.Errors, "No se recibieron archivos")
		return res, nil
	}
	for _, f := range files {
		id, err := uc.uploadOne(ctx, empresaID, userID, f)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			res.Skipped++
		case err != nil:
			uc.log.Warn().Err(err).Str("archivo", f.Name).Msg("carga rechazada")
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", f.Name, err.Error()))
		default:
			res.Created++
			res.IDs = append(res.IDs, id)
		}
	}
	return res, nil
}

func (uc *UseCase) uploadOne(ctx context.Context, empresaID, userID string, f UploadFile) (int64, error) {
	if err := entity.CheckUpload(f.Name, f.Size); err != nil {
		return 0, err
	}
	file, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("abrir archivo: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return 0, fmt.Errorf("leer archivo: %w", err)
	}
	hash := hex.EncodeToString(h.Sum(nil))

	mime := entity.MimeFor(f.Name)
	paginas := 0
	if mime == "application/pdf" && uc.pages != nil {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		n, err := uc.pages.CountPages(file)
		if err != nil {
			return 0, fmt.Errorf("%w: PDF ilegible", domain.ErrInvalidInput)
		}
		paginas = n
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	now := uc.now()
	key := fmt.Sprintf("documentos/%s/%04d/%02d/%s%s", empresaID, now.Year(), int(now.Month()), hash[:24], strings.ToLower(filepath.Ext(f.Name)))

	doc := &entity.Document{
		EmpresaID:     empresaID,
		SubidoPor:     userID,
		Estado:        entity.EstadoPendiente,
		ArchivoKey:    key,
		NombreArchivo: filepath.Base(f.Name),
		HashSHA256:    hash,
		MimeType:      mime,
		TamanoBytes:   f.Size,
		Paginas:       paginas,
		Origen:        entity.OrigenManual,
		CreadoEn:      now,
		ActualizadoEn: now,
	}
	// El registro primero: si es duplicado no se toca el storage.
	if err := uc.repo.Create(ctx, doc); err != nil {
		return 0, err
	}
	if err := uc.storage.Save(ctx, key, file, mime); err != nil {
		// Sin archivo no queda registro: el hash debe quedar libre para reintentar.
		if derr := uc.repo.Delete(context.WithoutCancel(ctx), empresaID, doc.ID); derr != nil {
			uc.log.Error().Err(derr).Int64("documento_id", doc.ID).Msg("no se pudo revertir documento sin archivo")
		}
		return 0, fmt.Errorf("guardar archivo: %w", err)
	}
	uc.log.Info().Int64("documento_id", doc.ID).Str("empresa_id", empresaID).Str("archivo", doc.NombreArchivo).Msg("documento cargado")
	return doc.ID, nil
}

// Report genera el PDF del listado filtrado.
func (uc *UseCase) Report(ctx context.Context, empresaID string, p FilterParams) ([]byte, error) {
	if uc.report == nil {
		return nil, fmt.Errorf("%w: reporte no configurado", domain.ErrUnsupported)
	}
	f := ParseFilter(p)
	f.Limit = maxListRows
	docs, err := uc.repo.List(ctx, empresaID, f)
	if err != nil {
		return nil, fmt.Errorf("reporte: %w", err)
	}
	title := "Documentos tributarios"
	if p.From != "" || p.To != "" {
		title = fmt.Sprintf("%s (%s a %s)", title, orDots(p.From), orDots(p.To))
	}
	return uc.report.GenerateDocumentReport(title, docs)
}

// Content lee el archivo original (lo usa el procesador).
func (uc *UseCase) Content(ctx context.Context, d *entity.Document) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, d.ArchivoKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, entity.MaxUploadBytes+1)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (uc *UseCase) find(ctx context.Context, empresaID string, id int64) (*entity.Document, error) {
	if empresaID == "" {
		return nil, domain.ErrNoEmpresa
	}
	d, err := uc.repo.GetByID(ctx, empresaID, id)
	if err != nil {
		return nil, fmt.Errorf("obtener documento: %w", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func orDots(s string) string {
	if s == "" {
		return "…"
	}
	return s
}
