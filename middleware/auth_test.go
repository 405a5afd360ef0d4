package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("gw-secret"))
	app.Get("/me", WalletContextMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(Wallet(c))
	})
	return app
}

func TestGatewayAuth(t *testing.T) {
	app := newTestApp()
	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer gw-secret", fiber.StatusOK},
		{"raw", "gw-secret", fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("X-Wallet-Address", testWallet)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.status)
		}
	}
}

func TestWalletContext(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer gw-secret")
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("missing wallet: status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer gw-secret")
	req.Header.Set("X-Wallet-Address", "not/a/wallet")
	resp, _ = app.Test(req)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("invalid wallet: status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer gw-secret")
	req.Header.Set("X-Wallet-Address", "  "+testWallet+" ")
	resp, _ = app.Test(req)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(body) != strings.ToLower(testWallet) {
		t.Fatalf("status = %d body = %q", resp.StatusCode, body)
	}
}

func TestNormalizeWallet(t *testing.T) {
	lower := strings.ToLower(testWallet)
	solana := "7EcDhSYGxXyscszYEp35KHN8vvw3svAuLKTzXwCFLtV"
	cases := map[string]string{
		testWallet:  lower,
		" " + lower: lower,
		solana:      solana,
	}
	for in, want := range cases {
		if got := NormalizeWallet(in); got != want {
			t.Fatalf("NormalizeWallet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidWallet(t *testing.T) {
	valid := []string{testWallet, "7EcDhSYGxXyscszYEp35KHN8vvw3svAuLKTzXwCFLtV"}
	for _, w := range valid {
		if !ValidWallet(w) {
			t.Fatalf("%q should be valid", w)
		}
	}
	invalid := []string{"", "short", "0x123-456", "../../etc/passwd"}
	for _, w := range invalid {
		if ValidWallet(w) {
			t.Fatalf("%q should be invalid", w)
		}
	}
}
