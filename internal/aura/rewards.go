// Package aura implements the reward computation for content creation.
package aura

import "github.com/zephyrsocial/zephyr/backend/internal/models"

// AttachmentTier is the reward configuration for one media category: a flat
// bonus for using the category at all, plus a capped per-item bonus.
type AttachmentTier struct {
	Base     int
	PerItem  int
	MaxBonus int
}

// RewardTable holds every tunable constant of the reward system in one place.
type RewardTable struct {
	BasePost    int
	MaxTotal    int
	Attachments map[models.MediaType]AttachmentTier
}

// Rewards is the active reward table.
var Rewards = RewardTable{
	BasePost: 10,
	MaxTotal: 150,
	Attachments: map[models.MediaType]AttachmentTier{
		models.MediaTypeImage: {Base: 20, PerItem: 5, MaxBonus: 25},
		models.MediaTypeVideo: {Base: 40, PerItem: 10, MaxBonus: 20},
		models.MediaTypeAudio: {Base: 25, PerItem: 8, MaxBonus: 16},
		models.MediaTypeCode:  {Base: 15, PerItem: 15, MaxBonus: 45},
	},
}

// ComputeReward returns the aura awarded for a post with the given attachment
// types. An empty list earns the flat base reward. Unknown types are ignored.
// The result is always in [0, Rewards.MaxTotal].
func ComputeReward(types []models.MediaType) int {
	return Rewards.Compute(types)
}

// Compute applies the tiered reward rules of the table.
func (t RewardTable) Compute(types []models.MediaType) int {
	if len(types) == 0 {
		return t.BasePost
	}

	counts := make(map[models.MediaType]int)
	for _, mt := range types {
		if _, ok := t.Attachments[mt]; ok {
			counts[mt]++
		}
	}

	total := t.BasePost
	for mt, count := range counts {
		tier := t.Attachments[mt]
		bonus := count * tier.PerItem
		if bonus > tier.MaxBonus {
			bonus = tier.MaxBonus
		}
		total += tier.Base + bonus
	}

	if total > t.MaxTotal {
		total = t.MaxTotal
	}
	return total
}
