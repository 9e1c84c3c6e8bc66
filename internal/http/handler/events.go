package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"propertybot/internal/logger"
	"propertybot/internal/source/chat"
	"propertybot/internal/source/chat/waha"
)

// EventSubmitter processes chat events in the background.
type EventSubmitter interface {
	Submit(ev chat.Event)
}

// ChatEvents receives the bridge webhook. Events for sessions other than
// session are dropped. When hmacKey is set the body must carry a valid
// signature. Accepted and ignored events both get 200 so the bridge never
// retries; events are handled after the response.
func ChatEvents(s EventSubmitter, session, hmacKey string) fiber.Handler {
	log := logger.Component("chat")
	return func(c *fiber.Ctx) error {
		if hmacKey != "" && !waha.VerifySignature(c.Body(), c.Get(waha.SignatureHeader), hmacKey) {
			log.Warn().Str("ip", c.IP()).Msg("bridge event with invalid signature")
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		}
		ev, ok, err := waha.ParseEvent(c.Body(), session)
		if err != nil {
			if errors.Is(err, waha.ErrSessionMismatch) {
				log.Warn().Err(err).Msg("bridge event dropped")
			} else {
				log.Debug().Err(err).Msg("unparseable bridge event")
			}
			return c.SendStatus(fiber.StatusOK)
		}
		if ok {
			s.Submit(ev)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}
