package purge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentageCutoffsBoundedByTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	startTimes := map[string]int64{
		"flow": now.Add(-100 * time.Hour).UnixMicro(),
		"stats": now.Add(-1 * time.Hour).UnixMicro(),
		"msg":   now.Add(-1 * time.Hour).UnixMicro(),
		"other": now.Add(-1 * time.Hour).UnixMicro(),
	}
	ttls := map[string]time.Duration{
		"flow": 48 * time.Hour, "stats": 48 * time.Hour, "msg": 48 * time.Hour, "other": 48 * time.Hour,
	}

	cutoffs, err := percentageCutoffs(70, startTimes, ttls, now)
	require.NoError(t, err)

	// age(flow) = 100h > ttl 48h, so bounded = 48h; frac = 0.3 -> delta = 14.4h
	wantFlow := now.Add(-time.Duration(float64(48*time.Hour) * 0.3)).UnixMicro()
	assert.InDelta(t, wantFlow, cutoffs["flow"], 1000)
}

func TestPercentageCutoffsRejectsOutOfRange(t *testing.T) {
	_, err := percentageCutoffs(0, nil, nil, time.Now())
	assert.Error(t, err)
	_, err = percentageCutoffs(101, nil, nil, time.Now())
	assert.Error(t, err)
}

func TestTimeLiteralCutoffsRejectsBeforeStart(t *testing.T) {
	now := time.Now()
	startTimes := map[string]int64{"flow": now.Add(-1 * time.Hour).UnixMicro()}
	literal := "now-2h"
	_, err := timeLiteralCutoffs(literal, startTimes, now)
	assert.Error(t, err)
}

func TestTimeLiteralCutoffsAppliesToAllClasses(t *testing.T) {
	now := time.Now()
	startTimes := map[string]int64{"flow": now.Add(-10 * time.Hour).UnixMicro()}
	cutoffs, err := timeLiteralCutoffs("now-1h", startTimes, now)
	require.NoError(t, err)
	require.Len(t, cutoffs, len(Classes))
	for _, c := range Classes {
		assert.Equal(t, cutoffs["flow"], cutoffs[c])
	}
}

func TestParseTimeLiteralRelative(t *testing.T) {
	now := time.Now()
	got, err := parseTimeLiteral("now-10m", now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(-10*time.Minute), got, time.Second)
}

func TestParseTimeLiteralAbsolute(t *testing.T) {
	got, err := parseTimeLiteral("2025-01-01T00:00:00Z", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
}
