package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"propertybot/internal/logger"
	"propertybot/internal/model"
	"propertybot/internal/source/webhook"
)

// MessageDispatcher hands messages to the gateway asynchronously.
type MessageDispatcher interface {
	Dispatch(msgs ...model.RawMessage)
}

// VerifyWebhook answers the platform subscription handshake.
// @Summary Webhook verification handshake
// @Tags webhook
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "Shared secret"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string
// @Failure 403 {string} string
// @Router /webhook [get]
func VerifyWebhook(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challenge, ok := webhook.Verify(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"), secret)
		if !ok {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.Status(fiber.StatusOK).SendString(challenge)
	}
}

// ReceiveWebhook acknowledges every delivery with 200 and forwards the text
// messages it contains in the background. Malformed payloads forward nothing.
// @Summary Webhook delivery
// @Tags webhook
// @Accept json
// @Success 200
// @Router /webhook [post]
func ReceiveWebhook(d MessageDispatcher) fiber.Handler {
	log := logger.Component("webhook")
	return func(c *fiber.Ctx) error {
		var p webhook.Payload
		if err := json.Unmarshal(c.Body(), &p); err != nil {
			log.Debug().Err(err).Msg("unparseable webhook payload")
			return c.SendStatus(fiber.StatusOK)
		}
		if msgs := webhook.Messages(p); len(msgs) > 0 {
			log.Info().Int("messages", len(msgs)).Msg("webhook delivery received")
			d.Dispatch(msgs...)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}
