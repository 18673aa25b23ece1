package types

import (
	"encoding/json"
	"time"
)

// UsageSnapshot is the summed premium request count for the current
// billing period, with the raw API body kept for diagnostics.
type UsageSnapshot struct {
	Used float64         `json:"used"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

// Tier is the severity bucket used for styling.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

// StatusView is everything the presenters need, derived from a
// snapshot and the configured quota. Percentage is unclamped and may
// exceed 100; DisplayPercentage is clamped to [0,100].
type StatusView struct {
	Used              float64
	Quota             int
	Percentage        int
	DisplayPercentage int
	Tier              Tier
	ResetAt           time.Time
	ResetLabel        string
	UsedLabel         string
}
