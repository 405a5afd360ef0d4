// handlers/spinner_routes.go
package handlers

import (
	"airdrop-campaign/middleware"
	"airdrop-campaign/services"
	"airdrop-campaign/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupSpinnerRoutes(app *fiber.App, hub *services.Hub) {
	wallet := middleware.WalletContextMiddleware()

	// Reward table is public to every authenticated caller.
	app.Get("/spinner/rewards", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"rewards": hub.Spinner().Table().Entries(),
		})
	})

	app.Get("/spinner/status", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}
		return c.JSON(session.SpinnerStatus())
	})

	app.Post("/spinner/spin", wallet, func(c *fiber.Ctx) error {
		session, err := openSession(c, hub)
		if session == nil {
			return err
		}

		outcome, progress := session.Spin(c.UserContext())
		if outcome == nil {
			return c.JSON(fiber.Map{
				"applied":  false,
				"spinner":  progress.Spinner,
				"progress": progress,
			})
		}

		utils.LogInfo("🎰 [SPINNER] %s won %s (+%d), total %d",
			session.Wallet(), outcome.Label, outcome.Points, outcome.TotalPoints)

		return c.JSON(fiber.Map{
			"applied":  true,
			"result":   outcome,
			"spinner":  progress.Spinner,
			"progress": progress,
		})
	})
}
