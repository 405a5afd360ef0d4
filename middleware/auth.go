// middleware/auth.go
package middleware

import (
	"regexp"
	"strings"

	"airdrop-campaign/utils"

	"github.com/gofiber/fiber/v2"
)

// WalletLocalsKey is where the caller's wallet address is stored.
const WalletLocalsKey = "wallet"

// Covers 0x-prefixed EVM addresses and base58 Solana keys.
var walletPattern = regexp.MustCompile(`^[A-Za-z0-9]{26,64}$`)

// ValidWallet reports whether s looks like a wallet address.
func ValidWallet(s string) bool {
	return walletPattern.MatchString(s)
}

// NormalizeWallet trims s and lowercases 0x-prefixed EVM addresses, whose
// checksum casing is not part of the identity. Base58 keys are case-sensitive
// and kept as given.
func NormalizeWallet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return strings.ToLower(s)
	}
	return s
}

// WalletContextMiddleware extracts the connected wallet set by the Gateway.
func WalletContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := NormalizeWallet(c.Get("X-Wallet-Address"))
		if wallet == "" {
			utils.LogWarn("❌ [WALLET_CTX] X-Wallet-Address missing on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Wallet-Address, connect a wallet first",
			})
		}
		if !ValidWallet(wallet) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid wallet address",
			})
		}

		c.Locals(WalletLocalsKey, wallet)
		utils.LogDebug("👛 [WALLET_CTX] Wallet=%s | Path: %s", wallet, c.Path())
		return c.Next()
	}
}

// Wallet returns the wallet stored by WalletContextMiddleware.
func Wallet(c *fiber.Ctx) string {
	w, _ := c.Locals(WalletLocalsKey).(string)
	return w
}
