package domain

import (
	"strings"
	"time"

	"github.com/damoang/angple-bans/internal/common"
)

// DurationKind classifies a DurationSpec
type DurationKind int

const (
	DurationIndefinite DurationKind = iota
	DurationPreset
	DurationCustom
)

// Preset names accepted in the "duration" field
const (
	Preset30Minutes  = "30m"
	Preset1Hour      = "1h"
	Preset2Hours     = "2h"
	Preset1Day       = "1d"
	Preset7Days      = "7d"
	PresetIndefinite = "indefinite"
)

var presetOffsets = map[string]time.Duration{
	Preset30Minutes: 30 * time.Minute,
	Preset1Hour:     time.Hour,
	Preset2Hours:    2 * time.Hour,
	Preset1Day:      24 * time.Hour,
	Preset7Days:     7 * 24 * time.Hour,
}

// customLayouts are tried in order for Custom end times
var customLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// DurationSpec is how long a new ban lasts: a preset offset from now, indefinite, or a custom end time
type DurationSpec struct {
	kind   DurationKind
	name   string
	offset time.Duration
	custom time.Time
}

// Indefinite returns the never-expiring spec
func Indefinite() DurationSpec {
	return DurationSpec{kind: DurationIndefinite, name: PresetIndefinite}
}

// Preset returns a named preset
func Preset(name string) (DurationSpec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == PresetIndefinite {
		return Indefinite(), nil
	}
	offset, ok := presetOffsets[name]
	if !ok {
		return DurationSpec{}, common.NewRequestError(common.ReasonInvalidDuration, "unknown duration preset: "+name)
	}
	return DurationSpec{kind: DurationPreset, name: name, offset: offset}, nil
}

// Custom returns a spec ending at the given instant
func Custom(endAt time.Time) DurationSpec {
	return DurationSpec{kind: DurationCustom, name: "custom", custom: endAt.UTC()}
}

// ParseCustom parses a custom end time. Zone-less layouts are read as UTC.
func ParseCustom(raw string) (DurationSpec, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range customLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Custom(t), nil
		}
	}
	return DurationSpec{}, common.NewRequestError(common.ReasonInvalidEndAt, "end_at is not a valid timestamp: "+raw)
}

// ParseDurationSpec resolves the request pair: a non-empty endAt selects Custom,
// otherwise the duration preset (empty means indefinite).
func ParseDurationSpec(duration, endAt string) (DurationSpec, error) {
	if strings.TrimSpace(endAt) != "" {
		return ParseCustom(endAt)
	}
	if strings.TrimSpace(duration) == "" {
		return Indefinite(), nil
	}
	return Preset(duration)
}

// Kind returns the spec kind
func (d DurationSpec) Kind() DurationKind { return d.kind }

// Name returns the preset name, "indefinite" or "custom"
func (d DurationSpec) Name() string {
	if d.name == "" {
		return PresetIndefinite
	}
	return d.name
}

// EndAt resolves the concrete end time relative to now; nil means indefinite
func (d DurationSpec) EndAt(now time.Time) *time.Time {
	switch d.kind {
	case DurationPreset:
		t := now.Add(d.offset)
		return &t
	case DurationCustom:
		t := d.custom
		return &t
	}
	return nil
}
