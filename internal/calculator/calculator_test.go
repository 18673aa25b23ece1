package calculator

import (
	"testing"
	"time"

	"github.com/sdpower/copilot-usage/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	testCases := []struct {
		desc  string
		used  float64
		quota int
		want  int
	}{
		{"zero used", 0, 300, 0},
		{"simple", 150, 300, 50},
		{"rounds down", 3.5, 300, 1},
		{"over quota is not clamped", 400, 300, 133},
		{"zero quota", 10, 0, 0},
		{"negative quota", 10, -5, 0},
		{"half rounds to even", 1, 8, 12},
		{"exactly full", 300, 300, 100},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, Percentage(tc.used, tc.quota))
		})
	}
}

func TestClampPercentage(t *testing.T) {
	assert.Equal(t, 100, ClampPercentage(133))
	assert.Equal(t, 0, ClampPercentage(-4))
	assert.Equal(t, 42, ClampPercentage(42))
}

func TestClassifyTier(t *testing.T) {
	testCases := []struct {
		pct  int
		want types.Tier
	}{
		{0, types.TierLow},
		{49, types.TierLow},
		{50, types.TierMid},
		{79, types.TierMid},
		{80, types.TierHigh},
		{100, types.TierHigh},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ClassifyTier(tc.pct), "pct=%d", tc.pct)
	}
}

func TestNextReset(t *testing.T) {
	testCases := []struct {
		desc string
		now  time.Time
		want time.Time
	}{
		{"december rolls over the year", time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"mid year", time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"first instant of a month", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"last instant of january", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		// 2024-06-30 20:00 in UTC-5 is already July 1st in UTC.
		{"local time converted to UTC", time.Date(2024, 6, 30, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)), time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := NextReset(tc.now)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestFormatETA(t *testing.T) {
	testCases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "now"},
		{0, "now"},
		{30 * time.Second, "1m"},
		{12 * time.Minute, "12m"},
		{3*time.Hour + 12*time.Minute, "3h 12m"},
		{5*24*time.Hour + 3*time.Hour + 20*time.Minute, "5d 3h"},
		{16*24*time.Hour + 14*time.Hour, "16d 14h"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatETA(tc.d), "d=%s", tc.d)
	}
}

func TestFormatUsed(t *testing.T) {
	testCases := []struct {
		v    float64
		want string
	}{
		{0, "0"},
		{12, "12"},
		{12.5, "12.5"},
		{3.5, "3.5"},
		{300, "300"},
		{0.1, "0.1"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatUsed(tc.v))
	}
}

func TestProject(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	view := Project(types.UsageSnapshot{Used: 400}, 300, now)
	assert.Equal(t, 133, view.Percentage)
	assert.Equal(t, 100, view.DisplayPercentage)
	assert.Equal(t, types.TierHigh, view.Tier)
	assert.Equal(t, "400", view.UsedLabel)
	assert.Equal(t, "15d 12h", view.ResetLabel)
	assert.True(t, view.ResetAt.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))

	view = Project(types.UsageSnapshot{Used: 3.5}, 300, now)
	assert.Equal(t, 1, view.Percentage)
	assert.Equal(t, types.TierLow, view.Tier)
	assert.Equal(t, "3.5", view.UsedLabel)
}
