// handlers/stream.go
package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"airdrop-campaign/services"
	"airdrop-campaign/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	streamBuffer    = 16
	streamKeepalive = 15 * time.Second
)

// streamProgress pushes the session's events as server-sent events until the
// client goes away.
func streamProgress(c *fiber.Ctx, session *services.Session) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		pumpEvents(w, session, done, streamKeepalive)
	})
	return nil
}

// pumpEvents owns the subscription for one stream. fasthttp only reports a
// gone client through a failed flush, so every write is checked.
func pumpEvents(w *bufio.Writer, session *services.Session, done <-chan struct{}, keepalive time.Duration) {
	events, unsubscribe := session.Subscribe(streamBuffer)
	defer unsubscribe()
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	if err := writeEvent(w, "progress", session.Progress()); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, string(ev.Type), ev); err != nil {
				utils.LogDebug("[SSE] client for %s disconnected: %v", session.Wallet(), err)
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(":\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				utils.LogDebug("[SSE] client for %s disconnected: %v", session.Wallet(), err)
				return
			}
		case <-done:
			return
		}
	}
}

func writeEvent(w *bufio.Writer, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return w.Flush()
}
