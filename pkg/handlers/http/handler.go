package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

// HandlerTransport groups the admin API handlers for server wiring.
type HandlerTransport struct {
	ListBlacklistHandler   Handler
	AddBlacklistHandler    Handler
	DeleteBlacklistHandler Handler
	GetPolicyHandler       Handler
}
