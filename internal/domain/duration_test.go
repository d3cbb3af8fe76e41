package domain

import (
	"testing"
	"time"

	"github.com/damoang/angple-bans/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetEndAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
	}{
		{Preset30Minutes, 30 * time.Minute},
		{Preset1Hour, time.Hour},
		{Preset2Hours, 2 * time.Hour},
		{Preset1Day, 24 * time.Hour},
		{Preset7Days, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Preset(tt.name)
			require.NoError(t, err)
			assert.Equal(t, DurationPreset, spec.Kind())
			end := spec.EndAt(now)
			require.NotNil(t, end)
			assert.Equal(t, now.Add(tt.offset), *end)
		})
	}
}

func TestIndefinite(t *testing.T) {
	spec, err := Preset("indefinite")
	require.NoError(t, err)
	assert.Equal(t, DurationIndefinite, spec.Kind())
	assert.Nil(t, spec.EndAt(time.Now()))
	assert.Equal(t, "indefinite", DurationSpec{}.Name())
}

func TestUnknownPreset(t *testing.T) {
	_, err := Preset("3w")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.Equal(t, common.ReasonInvalidDuration, common.ReasonCode(err))
}

func TestParseCustom(t *testing.T) {
	want := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	for _, raw := range []string{
		"2026-05-04T10:30:00Z",
		"2026-05-04T19:30:00+09:00",
		"2026-05-04T10:30",
		"2026-05-04 10:30:00",
	} {
		spec, err := ParseCustom(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, DurationCustom, spec.Kind())
		assert.True(t, spec.EndAt(time.Now()).Equal(want), raw)
	}

	_, err := ParseCustom("next tuesday")
	assert.Equal(t, common.ReasonInvalidEndAt, common.ReasonCode(err))
}

func TestParseDurationSpec(t *testing.T) {
	spec, err := ParseDurationSpec("", "")
	require.NoError(t, err)
	assert.Equal(t, DurationIndefinite, spec.Kind())

	spec, err = ParseDurationSpec("1h", "")
	require.NoError(t, err)
	assert.Equal(t, DurationPreset, spec.Kind())

	// end_at wins over the preset
	spec, err = ParseDurationSpec("1h", "2026-05-04T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, DurationCustom, spec.Kind())

	_, err = ParseDurationSpec("", "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}
