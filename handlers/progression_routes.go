// handlers/progression_routes.go
package handlers

import (
	"errors"

	"airdrop-campaign/middleware"
	"airdrop-campaign/services"
	"airdrop-campaign/utils"

	"github.com/gofiber/fiber/v2"
)

// openSession resolves the caller's session or writes a 503.
func openSession(c *fiber.Ctx, hub *services.Hub) (*services.Session, error) {
	wallet := middleware.Wallet(c)
	session, err := hub.Open(c.UserContext(), wallet)
	if err != nil {
		utils.LogError("[PROGRESS] failed to open session for %s: %v", wallet, err)
		return nil, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "progress is temporarily unavailable",
			"cause": err.Error(),
		})
	}
	return session, nil
}

func SetupProgressionRoutes(app *fiber.App, hub *services.Hub) {
	wallet := middleware.WalletContextMiddleware()

	app.Get("/tasks", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		progress := session.Progress()
		return c.JSON(fiber.Map{
			"tasks": progress.Tasks,
			"mode":  progress.Mode,
		})
	})

	// Action-click gate: the client reports that the external link was opened.
	app.Post("/tasks/:id/action", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		progress, applied := session.MarkActionClicked(c.UserContext(), c.Params("id"))
		return c.JSON(fiber.Map{
			"applied":  applied,
			"progress": progress,
		})
	})

	// Completion preconditions are silent: a rejected completion answers 200
	// with applied=false and the unchanged progress.
	app.Post("/tasks/:id/complete", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		progress, applied := session.CompleteTask(c.UserContext(), c.Params("id"))
		return c.JSON(fiber.Map{
			"applied":  applied,
			"progress": progress,
		})
	})

	app.Get("/progress", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		return c.JSON(session.Progress())
	})

	app.Post("/progress/reset", wallet, func(c *fiber.Ctx) error {
		var req struct {
			Confirm bool `json:"confirm"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		progress, applied, err := session.Reset(c.UserContext(), req.Confirm)
		switch {
		case errors.Is(err, services.ErrConfirmationRequired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "resetting progress is irreversible; send {\"confirm\": true}",
			})
		case errors.Is(err, services.ErrRemoteReset):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if applied {
			utils.LogInfo("🧹 [PROGRESS] progress reset for %s", session.Wallet())
		}
		return c.JSON(fiber.Map{
			"applied":  applied,
			"progress": progress,
		})
	})

	app.Get("/progress/stream", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		return streamProgress(c, session)
	})
}
