package critique

import (
	"fmt"
	"strings"
)

// SimplificationLevel selects full or simplified wording.
type SimplificationLevel string

const (
	LevelFull       SimplificationLevel = "full"
	LevelSimplified SimplificationLevel = "simplified"
)

// ParseLevel converts user input into a SimplificationLevel.
func ParseLevel(s string) (SimplificationLevel, error) {
	switch SimplificationLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelFull, "":
		return LevelFull, nil
	case LevelSimplified, "simple":
		return LevelSimplified, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// LevelFor maps the simplified toggle onto a level.
func LevelFor(simplified bool) SimplificationLevel {
	if simplified {
		return LevelSimplified
	}
	return LevelFull
}

// Tone is the rhetorical register of a variant.
type Tone string

const (
	ToneNormal     Tone = "normal"
	TonePersuasive Tone = "persuasive"
	ToneAggressive Tone = "aggressive"
	ToneCritical   Tone = "critical"
)

// AllTones lists tones in the order the UI cycles through them.
func AllTones() []Tone {
	return []Tone{ToneNormal, TonePersuasive, ToneAggressive, ToneCritical}
}

// ParseTone converts user input into a Tone. An empty string clears the
// tone back to normal.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return ToneNormal, nil
	}
	for _, known := range AllTones() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
}

// Next returns the tone after t in AllTones, wrapping around.
func (t Tone) Next() Tone {
	tones := AllTones()
	for i, known := range tones {
		if known == t {
			return tones[(i+1)%len(tones)]
		}
	}
	return ToneNormal
}

// VariantKey identifies one rendering of the current PointSet. Epoch moves
// forward whenever the points or the theme list change.
type VariantKey struct {
	Level SimplificationLevel `json:"level"`
	Tone  Tone                `json:"tone"`
	Epoch uint64              `json:"epoch"`
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Epoch, k.Level, k.Tone)
}

// IsBase reports whether k is the untransformed full/normal rendering.
func (k VariantKey) IsBase() bool {
	return k.Level == LevelFull && k.Tone == ToneNormal
}

// VariantStatus is the lifecycle of a cache entry.
type VariantStatus string

const (
	VariantPending VariantStatus = "pending"
	VariantReady   VariantStatus = "ready"
	VariantFailed  VariantStatus = "failed"
)

// Variant is an immutable snapshot of a generated rendering.
type Variant struct {
	Key    VariantKey    `json:"key"`
	Text   string        `json:"text"`
	Points PointSet      `json:"points"`
	Status VariantStatus `json:"status"`
	Err    string        `json:"error,omitempty"`
}

// NewVariant builds a ready variant from generated text.
func NewVariant(key VariantKey, text string) Variant {
	return Variant{Key: key, Text: text, Points: Split(text), Status: VariantReady}
}

// Clone returns a copy whose Points can be modified freely.
func (v Variant) Clone() Variant {
	v.Points = v.Points.Clone()
	return v
}
