package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/application/sii"
)

// SIIHandler acciones de validación con el SII. Los errores van como {"detail": "..."}.
type SIIHandler struct {
	uc *sii.UseCase
}

// NewSIIHandler construye el handler.
func NewSIIHandler(uc *sii.UseCase) *SIIHandler {
	return &SIIHandler{uc: uc}
}

// Validar godoc
// @Summary      Validar documento con el SII
// @Tags         sii
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del documento"
// @Success      200  {object}  dto.SIIActionResponse
// @Failure      404  {object}  dto.DetailResponse
// @Failure      502  {object}  dto.DetailResponse
// @Router       /api/v1/documentos/{id}/validar-sii/ [post]
func (h *SIIHandler) Validar(c *fiber.Ctx) error {
	id, ok := docID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.DetailResponse{Detail: "id inválido"})
	}
	res, err := h.uc.Validate(c.UserContext(), GetEmpresaID(c), id)
	if err != nil {
		return writeDetail(c, err)
	}
	return c.JSON(dto.SIIActionResponse{Result: *res})
}

// Estado godoc
// @Summary      Consultar estado SII por track id
// @Tags         sii
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del documento"
// @Success      200  {object}  dto.SIIActionResponse
// @Failure      409  {object}  dto.DetailResponse  "documento sin track id"
// @Router       /api/v1/documentos/{id}/estado-sii/ [get]
func (h *SIIHandler) Estado(c *fiber.Ctx) error {
	id, ok := docID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.DetailResponse{Detail: "id inválido"})
	}
	res, err := h.uc.Refresh(c.UserContext(), GetEmpresaID(c), id)
	if err != nil {
		return writeDetail(c, err)
	}
	return c.JSON(dto.SIIActionResponse{Result: *res})
}

// Contribuyente godoc
// @Summary      Datos públicos de un RUT
// @Tags         sii
// @Security     Bearer
// @Produce      json
// @Param        rut  query  string  true  "12.345.678-5"
// @Success      200  {object}  dto.ContribuyenteResponse
// @Failure      400  {object}  dto.DetailResponse
// @Router       /api/v1/sii/contribuyente/ [get]
func (h *SIIHandler) Contribuyente(c *fiber.Ctx) error {
	res, hit, err := h.uc.Contribuyente(c.UserContext(), c.Query("rut"))
	if err != nil {
		return writeDetail(c, err)
	}
	return c.JSON(dto.ContribuyenteResponse{
		Rut:                res.Rut,
		RazonSocial:        res.RazonSocial,
		ActividadPrincipal: res.ActividadPrincipal,
		Estado:             res.Estado,
		Cache:              hit,
	})
}
