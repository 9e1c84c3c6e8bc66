package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"propertybot/internal/service"
)

// DownloadBrochure godoc
// @Summary Download a captured brochure
// @Tags brochures
// @Produce application/pdf
// @Param name path string true "Sanitized filename"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/brochures/{name} [get]
func DownloadBrochure(svc service.BrochureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		rc, info, err := svc.Open(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, service.ErrBrochureNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "brochure not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		ct := info.ContentType
		if ct == "" {
			ct = "application/pdf"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))

		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// The response stream closes rc once the body is written.
		return c.SendStream(rc, size)
	}
}
