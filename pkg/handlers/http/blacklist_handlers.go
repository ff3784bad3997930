package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/domain/blacklist"
)

type blacklistRequest struct {
	Phrase string `json:"phrase"`
}

type listBlacklistHandler struct {
	logger *logrus.Logger
	store  blacklist.Store
}

func NewListBlacklistHandler(logger *logrus.Logger, store blacklist.Store) Handler {
	return &listBlacklistHandler{logger: logger, store: store}
}

func (h *listBlacklistHandler) Handle(c *fiber.Ctx) error {
	phrases, err := h.store.List(c.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list blacklist")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list blacklist"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"phrases": phrases})
}

type addBlacklistHandler struct {
	logger *logrus.Logger
	store  blacklist.Store
}

func NewAddBlacklistHandler(logger *logrus.Logger, store blacklist.Store) Handler {
	return &addBlacklistHandler{logger: logger, store: store}
}

func (h *addBlacklistHandler) Handle(c *fiber.Ctx) error {
	var req blacklistRequest
	if err := c.BodyParser(&req); err != nil || req.Phrase == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "phrase is required"})
	}
	added, err := h.store.Add(c.Context(), req.Phrase)
	if err != nil {
		h.logger.WithError(err).Error("failed to add blacklist phrase")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to add phrase"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"phrase": req.Phrase, "added": added})
}

type deleteBlacklistHandler struct {
	logger *logrus.Logger
	store  blacklist.Store
}

func NewDeleteBlacklistHandler(logger *logrus.Logger, store blacklist.Store) Handler {
	return &deleteBlacklistHandler{logger: logger, store: store}
}

func (h *deleteBlacklistHandler) Handle(c *fiber.Ctx) error {
	var req blacklistRequest
	if err := c.BodyParser(&req); err != nil || req.Phrase == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "phrase is required"})
	}
	removed, err := h.store.Remove(c.Context(), req.Phrase)
	if err != nil {
		h.logger.WithError(err).Error("failed to remove blacklist phrase")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to remove phrase"})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "phrase not found"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"phrase": req.Phrase, "removed": true})
}
