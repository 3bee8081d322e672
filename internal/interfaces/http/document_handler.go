package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
)

// DocumentHandler maneja el listado, detalle, progreso, carga, resumen y reporte de documentos.
type DocumentHandler struct {
	uc      *documents.UseCase
	summary *documents.SummaryUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *documents.UseCase, summary *documents.SummaryUseCase) *DocumentHandler {
	return &DocumentHandler{uc: uc, summary: summary}
}

// filterParams lee los filtros aceptando los alias del front antiguo.
func filterParams(c *fiber.Ctx) documents.FilterParams {
	return documents.FilterParams{
		Search: c.Query("search"),
		From:   documents.FirstNonEmpty(c.Query("dateFrom"), c.Query("date_from"), c.Query("from")),
		To:     documents.FirstNonEmpty(c.Query("dateTo"), c.Query("date_to"), c.Query("to")),
		Type:   documents.FirstNonEmpty(c.Query("docType"), c.Query("type")),
		Status: documents.FirstNonEmpty(c.Query("docStatus"), c.Query("status")),
	}
}

func docID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// List godoc
// @Summary      Listar documentos
// @Tags         documentos
// @Security     Bearer
// @Produce      json
// @Param        search     query  string  false  "folio, RUT, razón social o nombre de archivo"
// @Param        dateFrom   query  string  false  "AAAA-MM-DD"
// @Param        dateTo     query  string  false  "AAAA-MM-DD"
// @Param        docType    query  string  false  "factura | boleta | nc"
// @Param        docStatus  query  string  false  "pendiente | procesado | error"
// @Success      200  {object}  dto.DocumentListResponse
// @Router       /api/v1/documentos/ [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), GetEmpresaID(c), filterParams(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Detalle de un documento
// @Tags         documentos
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del documento"
// @Success      200  {object}  dto.DocumentDetail
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/documentos/{id}/ [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	id, ok := docID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id inválido"})
	}
	out, err := h.uc.Get(c.UserContext(), GetEmpresaID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Progress godoc
// @Summary      Progreso de un documento
// @Tags         documentos
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del documento"
// @Success      200  {object}  dto.ProgressResponse
// @Router       /api/v1/documentos/{id}/progress/ [get]
func (h *DocumentHandler) Progress(c *fiber.Ctx) error {
	id, ok := docID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id inválido"})
	}
	out, err := h.uc.Progress(c.UserContext(), GetEmpresaID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProgressBatch godoc
// @Summary      Progreso de varios documentos
// @Description  Ids no numéricos se ignoran; los ids de otra empresa no aparecen.
// @Tags         documentos
// @Security     Bearer
// @Produce      json
// @Param        ids  query  string  true  "1,2,3"
// @Success      200  {object}  dto.ProgressBatchResponse
// @Router       /api/v1/documentos/progress-batch/ [get]
func (h *DocumentHandler) ProgressBatch(c *fiber.Ctx) error {
	out, err := h.uc.ProgressBatch(c.UserContext(), GetEmpresaID(c), c.Query("ids"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Upload godoc
// @Summary      Cargar documentos
// @Description  multipart con uno o más archivos en files[] (o files). PDF, JPG o PNG de hasta 10 MB.
// @Tags         documentos
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  dto.UploadResult
// @Success      200  {object}  dto.UploadResult
// @Router       /api/v1/documentos/ [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	var files []documents.UploadFile
	if form, err := c.MultipartForm(); err == nil {
		headers := form.File["files[]"]
		if len(headers) == 0 {
			headers = form.File["files"]
		}
		for _, fh := range headers {
			files = append(files, documents.UploadFile{
				Name:        fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Open:        fh.Open,
			})
		}
	}
	out, err := h.uc.Upload(c.UserContext(), GetEmpresaID(c), GetUserID(c), files)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if out.Created > 0 {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(out)
}

// Summary godoc
// @Summary      Resumen de documentos de la empresa
// @Tags         documentos
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DocumentSummaryResponse
// @Router       /api/v1/documentos/resumen/ [get]
func (h *DocumentHandler) Summary(c *fiber.Ctx) error {
	out, err := h.summary.GetSummary(c.UserContext(), GetEmpresaID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Reporte PDF del listado filtrado
// @Tags         documentos
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Router       /api/v1/documentos/reporte.pdf [get]
func (h *DocumentHandler) Report(c *fiber.Ctx) error {
	pdf, err := h.uc.Report(c.UserContext(), GetEmpresaID(c), filterParams(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="documentos.pdf"`)
	return c.Send(pdf)
}
