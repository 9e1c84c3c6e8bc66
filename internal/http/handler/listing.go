package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"propertybot/internal/model"
	"propertybot/internal/service"
)

// AddProperty godoc
// @Summary Create a listing manually
// @Tags properties
// @Accept json
// @Produce json
// @Param body body model.Listing true "Listing"
// @Success 201 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/add-property [post]
func AddProperty(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var l model.Listing
		if err := c.BodyParser(&l); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid listing body")
		}
		// Identity and creation time are always assigned server-side.
		l.ID = ""
		l.CreatedAt = time.Time{}

		stored, err := svc.Create(c.UserContext(), &l)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Property added!", "id": stored.ID})
	}
}

// ListProperties godoc
// @Summary List listings, newest first
// @Tags properties
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ListingListResult
// @Failure 400 {object} errorPayload
// @Router /api/properties [get]
func ListProperties(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetProperty godoc
// @Summary Get a listing
// @Tags properties
// @Produce json
// @Param id path string true "Listing id (UUID)"
// @Success 200 {object} model.Listing
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/property/{id} [get]
func GetProperty(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeListingError(c, err)
		}
		return c.JSON(l)
	}
}

// UpdateProperty godoc
// @Summary Update the fields sent in the body
// @Tags properties
// @Accept json
// @Produce json
// @Param id path string true "Listing id (UUID)"
// @Param body body model.ListingUpdate true "Fields"
// @Success 200 {object} model.Listing
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/property/{id} [put]
func UpdateProperty(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var upd model.ListingUpdate
		if err := c.BodyParser(&upd); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid listing body")
		}
		l, err := svc.Update(c.UserContext(), c.Params("id"), upd)
		if err != nil {
			return writeListingError(c, err)
		}
		return c.JSON(l)
	}
}

// DeleteProperty godoc
// @Summary Delete a listing
// @Tags properties
// @Produce json
// @Param id path string true "Listing id (UUID)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/properties/{id} [delete]
func DeleteProperty(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeListingError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Property deleted!"})
	}
}

func writeListingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired), errors.Is(err, service.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "property not found")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
