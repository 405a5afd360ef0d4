// handlers/community_routes.go
package handlers

import (
	"context"
	"errors"

	"airdrop-campaign/middleware"
	"airdrop-campaign/models"
	"airdrop-campaign/services"
	"airdrop-campaign/utils"

	"github.com/gofiber/fiber/v2"
)

// Leaderboard ranks wallets by total points.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// SetupCommunityRoutes registers the leaderboard and referral endpoints.
// Both need the relational backend, so nil arguments skip their routes.
func SetupCommunityRoutes(app *fiber.App, board Leaderboard, referrals *services.ReferralService) {
	if board != nil {
		app.Get("/leaderboard", func(c *fiber.Ctx) error {
			entries, err := board.Leaderboard(c.UserContext(), c.QueryInt("limit", 20))
			if err != nil {
				utils.LogError("[LEADERBOARD] query failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load leaderboard"})
			}
			return c.JSON(fiber.Map{"entries": entries})
		})
	}

	if referrals == nil {
		return
	}
	wallet := middleware.WalletContextMiddleware()

	app.Get("/referrals", wallet, func(c *fiber.Ctx) error {
		n, err := referrals.CountForReferrer(c.UserContext(), middleware.Wallet(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"referrals": n})
	})

	// The caller is the referred wallet; the body names who invited them.
	app.Post("/referrals", wallet, func(c *fiber.Ctx) error {
		var req struct {
			Referrer string `json:"referrer"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		req.Referrer = middleware.NormalizeWallet(req.Referrer)
		if !middleware.ValidWallet(req.Referrer) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid referrer wallet"})
		}

		ref, err := referrals.Register(c.UserContext(), req.Referrer, middleware.Wallet(c))
		switch {
		case errors.Is(err, services.ErrSelfReferral):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyReferred):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "referral": ref})
		case err != nil:
			utils.LogError("[REFERRAL] register %s -> %s failed: %v", req.Referrer, middleware.Wallet(c), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		utils.LogInfo("🤝 [REFERRAL] %s referred %s (bonus=%v)", ref.ReferrerWallet, ref.ReferredWallet, ref.BonusAwarded)
		return c.Status(fiber.StatusCreated).JSON(ref)
	})
}

// SetupHealthRoutes registers the unauthenticated liveness check.
func SetupHealthRoutes(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
