package handler

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"propertybot/internal/brochure"
	"propertybot/internal/model"
	"propertybot/internal/service"
)

// processMessageRequest mirrors the forwarder payload. Raw is decoded as any
// so a non-string value is reported instead of silently zeroed.
type processMessageRequest struct {
	Raw        any    `json:"raw"`
	MessageID  string `json:"messageId"`
	GroupID    string `json:"groupId"`
	GroupName  string `json:"groupName"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Timestamp  string `json:"timestamp"`
}

// ProcessMessage godoc
// @Summary Ingest a raw listing message
// @Description Classifies the text, extracts listing fields and persists a listing.
// @Tags ingest
// @Accept json
// @Produce json
// @Param body body processMessageRequest true "Message"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/process-message [post]
func ProcessMessage(gw service.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req processMessageRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		}
		raw, ok := req.Raw.(string)
		if !ok || strings.TrimSpace(raw) == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_RAW", "missing or invalid raw message text")
		}

		res, err := gw.Ingest(c.UserContext(), model.RawMessage{
			ID:              req.MessageID,
			SourceGroupID:   req.GroupID,
			SourceGroupName: req.GroupName,
			SenderID:        req.Sender,
			SenderName:      req.SenderName,
			Timestamp:       parseTimestamp(req.Timestamp),
			Kind:            model.KindText,
			Body:            raw,
		})
		if err != nil {
			return writeIngestError(c, err)
		}

		if res.Outcome == service.OutcomeRejected {
			return c.JSON(fiber.Map{"message": "Message ignored.", "status": string(res.Outcome)})
		}
		return c.JSON(fiber.Map{"message": "Message processed and saved.", "id": res.Listing.ID})
	}
}

// ProcessBrochure godoc
// @Summary Capture a PDF brochure
// @Description Stores the PDF and ingests the notification derived from it.
// @Tags ingest
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF brochure"
// @Param groupId formData string false "Source group id"
// @Param groupName formData string false "Source group name"
// @Param sender formData string false "Sender id"
// @Param timestamp formData string false "RFC3339 or unix seconds"
// @Success 201 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/process-brochure [post]
func ProcessBrochure(gw service.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		ct := fh.Header.Get("Content-Type")
		if !brochure.IsPDF(ct, fh.Filename) {
			return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_MEDIA", "only PDF brochures are accepted")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}
		if len(data) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is empty")
		}
		if ct == "" {
			ct = "application/pdf"
		}

		res, err := gw.Ingest(c.UserContext(), model.RawMessage{
			ID:              c.FormValue("messageId"),
			SourceGroupID:   c.FormValue("groupId"),
			SourceGroupName: c.FormValue("groupName"),
			SenderID:        c.FormValue("sender"),
			SenderName:      c.FormValue("senderName"),
			Timestamp:       parseTimestamp(c.FormValue("timestamp")),
			Kind:            model.KindDocument,
			MediaBytes:      data,
			MediaMimeType:   ct,
			MediaFilename:   fh.Filename,
		})
		if err != nil {
			return writeIngestError(c, err)
		}

		body := fiber.Map{"message": "Brochure stored."}
		if res.Brochure != nil {
			body["brochure"] = res.Brochure.Filename
		}
		if res.Outcome == service.OutcomePersisted && res.Listing != nil {
			body["message"] = "Brochure stored and listed."
			body["id"] = res.Listing.ID
		} else {
			body["status"] = string(res.Outcome)
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	}
}

func writeIngestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidMessage), errors.Is(err, service.ErrEmptyMessage):
		return writeError(c, fiber.StatusBadRequest, "INVALID_RAW", "missing or invalid raw message text")
	case errors.Is(err, service.ErrUnsupportedMedia):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_MEDIA", "only PDF brochures are accepted")
	case errors.Is(err, service.ErrCaptureFailed):
		return writeError(c, fiber.StatusInternalServerError, "CAPTURE_FAILED", "brochure could not be stored")
	case errors.Is(err, service.ErrPersistFailed):
		return writeError(c, fiber.StatusInternalServerError, "PERSIST_FAILED", "listing could not be saved")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// parseTimestamp accepts RFC3339 or unix seconds; anything else is the zero time.
func parseTimestamp(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}
