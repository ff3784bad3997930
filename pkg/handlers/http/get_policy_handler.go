package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/app/policy"
)

type getPolicyHandler struct {
	logger *logrus.Logger
	cfg    policy.Config
}

// NewGetPolicyHandler exposes the effective decision constants for
// operators; the policy stays configured through files, not this API.
func NewGetPolicyHandler(logger *logrus.Logger, cfg policy.Config) Handler {
	return &getPolicyHandler{logger: logger, cfg: cfg}
}

func (h *getPolicyHandler) Handle(c *fiber.Ctx) error {
	thresholds := make(map[string]float64, len(h.cfg.Thresholds))
	for attr, threshold := range h.cfg.Thresholds {
		thresholds[string(attr)] = threshold
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"thresholds":       thresholds,
		"epsilon":          h.cfg.Epsilon,
		"profanity_cutoff": h.cfg.ProfanityCutoff,
	})
}
