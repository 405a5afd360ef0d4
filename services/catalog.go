package services

import (
	"encoding/json"
	"fmt"
	"os"

	"airdrop-campaign/models"

	"github.com/gosimple/slug"
)

// ReferralTaskID is the limited task completed on behalf of a referrer each
// time a new wallet registers with their code.
const ReferralTaskID = "invite-friend"

// DefaultCatalog is used when no catalog file is configured.
var DefaultCatalog = []models.Task{
	{ID: "follow", Title: "Follow us on X", URL: "https://x.com/spinairdrop", Type: models.TaskTypeOnce, Points: 5, MaxCompletions: 1},
	{ID: "retweet", Title: "Repost the launch announcement", URL: "https://x.com/spinairdrop/status/launch", Type: models.TaskTypeOnce, Points: 5, MaxCompletions: 1},
	{ID: "join-telegram", Title: "Join the Telegram community", URL: "https://t.me/spinairdrop", Type: models.TaskTypeOnce, Points: 10, MaxCompletions: 1},
	{ID: "join-discord", Title: "Join the Discord server", URL: "https://discord.gg/spinairdrop", Type: models.TaskTypeOnce, Points: 10, MaxCompletions: 1},
	{ID: "daily-check-in", Title: "Daily check-in", Description: "Visit the campaign page every day of launch week", URL: "https://spinairdrop.xyz/airdrop", Type: models.TaskTypeDaily, Points: 2, MaxCompletions: 7},
	{ID: ReferralTaskID, Title: "Invite a friend", Description: "Share your referral link", URL: "https://spinairdrop.xyz/airdrop?ref=", Type: models.TaskTypeLimited, Points: 15, MaxCompletions: 5},
}

type catalogEntry struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	URL            string          `json:"url"`
	Type           models.TaskType `json:"type"`
	Points         int64           `json:"points"`
	MaxCompletions int             `json:"maxCompletions"`
}

// LoadCatalog reads a JSON array of tasks. Missing ids are derived from the
// title, a missing type means "once" and a once task always has a cap of 1.
func LoadCatalog(path string) ([]models.Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return buildCatalog(entries)
}

// buildCatalog validates entries and turns them into catalog tasks.
func buildCatalog(entries []catalogEntry) ([]models.Task, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	tasks := make([]models.Task, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = slug.Make(e.Title)
		}
		if id == "" {
			return nil, fmt.Errorf("catalog entry %d has neither id nor title", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate task id %q", id)
		}
		seen[id] = struct{}{}

		typ := e.Type
		if typ == "" {
			typ = models.TaskTypeOnce
		}
		if !typ.Valid() {
			return nil, fmt.Errorf("task %q has unknown type %q", id, typ)
		}
		limit := e.MaxCompletions
		if typ == models.TaskTypeOnce {
			limit = 1
		}
		if limit < 1 {
			return nil, fmt.Errorf("task %q needs maxCompletions >= 1", id)
		}
		if e.Points < 0 {
			return nil, fmt.Errorf("task %q has negative points", id)
		}
		tasks = append(tasks, models.Task{
			ID:             id,
			Title:          e.Title,
			Description:    e.Description,
			URL:            e.URL,
			Type:           typ,
			Points:         e.Points,
			MaxCompletions: limit,
		})
	}
	return tasks, nil
}
