package services

import "airdrop-campaign/models"

// Tiers are ordered from highest to lowest threshold.
var Tiers = []models.Tier{
	{Name: "Cosmic Creator", ShortName: "Creator", MinPoints: 60},
	{Name: "Space Explorer", ShortName: "Base", MinPoints: 30},
	{Name: "Newcomer", ShortName: "Newcomer", MinPoints: 0},
}

// DetermineTier maps a point total to its tier. It is recomputed on every
// read and never cached next to the total.
func DetermineTier(totalPoints int64) models.Tier {
	for _, t := range Tiers {
		if totalPoints >= t.MinPoints {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

