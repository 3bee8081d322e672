package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain"
)

// statusFor traduce los errores de dominio a código HTTP y código de error.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrNoTrackID), errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrNoEmpresa), errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrUnsupported):
		return fiber.StatusUnsupportedMediaType, "UNSUPPORTED"
	case errors.Is(err, domain.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, "TOO_LARGE"
	case errors.Is(err, domain.ErrProviderError):
		return fiber.StatusBadGateway, "PROVIDER_ERROR"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde con dto.ErrorResponse. Los 500 no exponen el detalle interno.
func writeError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// writeDetail responde {"detail": "..."}; lo usan las acciones SII que el front muestra tal cual.
func writeDetail(c *fiber.Ctx, err error) error {
	status, _ := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrNoTrackID):
		msg = "Primero valida el documento para obtener Track ID."
	case status == fiber.StatusInternalServerError:
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.DetailResponse{Detail: msg})
}
