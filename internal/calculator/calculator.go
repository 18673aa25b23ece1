package calculator

import (
	"math"
	"strconv"
	"time"

	"github.com/sdpower/copilot-usage/internal/types"
)

const (
	// MidThreshold and HighThreshold are the lower bounds, in percent,
	// of the mid and high tiers.
	MidThreshold  = 50
	HighThreshold = 80
)

// Percentage returns used/quota as a whole percent. It is not clamped:
// 400 of 300 is 133. Halves round to even, so 12.5% reads as 12%.
func Percentage(used float64, quota int) int {
	if quota <= 0 {
		return 0
	}
	return int(math.RoundToEven(used / float64(quota) * 100))
}

// ClampPercentage bounds p to [0, 100] for display.
func ClampPercentage(p int) int {
	return max(0, min(p, 100))
}

func ClassifyTier(pct int) types.Tier {
	switch {
	case pct >= HighThreshold:
		return types.TierHigh
	case pct >= MidThreshold:
		return types.TierMid
	default:
		return types.TierLow
	}
}

// NextReset returns 00:00 UTC on the first day of the month after now.
func NextReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// FormatETA renders a countdown such as "5d 3h", "3h 12m" or "12m".
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
	default:
		return strconv.Itoa(mins) + "m"
	}
}

// FormatUsed renders whole numbers without a decimal point and anything
// else with one decimal digit: 12 -> "12", 12.5 -> "12.5".
func FormatUsed(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Project derives the display state for a snapshot at now.
func Project(snapshot types.UsageSnapshot, quota int, now time.Time) types.StatusView {
	pct := Percentage(snapshot.Used, quota)
	display := ClampPercentage(pct)
	reset := NextReset(now)

	return types.StatusView{
		Used:              snapshot.Used,
		Quota:             quota,
		Percentage:        pct,
		DisplayPercentage: display,
		Tier:              ClassifyTier(display),
		ResetAt:           reset,
		ResetLabel:        FormatETA(reset.Sub(now)),
		UsedLabel:         FormatUsed(snapshot.Used),
	}
}
