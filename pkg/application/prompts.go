package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const critiqueSystemPrompt = `You are a candid design reviewer. You receive a design challenge and the
decisions a team agreed on. Point out weaknesses, risks and blind spots.
Rules:
- Write between 3 and 8 short critique points.
- Separate points with " ** " and nothing else. No numbering, no bullets, no headings.
- Each point is one sentence.`

const variantSystemPrompt = `You rewrite design critique points. Keep the same points in the same order
and do not add or remove any. Separate points with " ** " and nothing else.`

const themesSystemPrompt = `You group design critique into a few themes. Answer with JSON only.`

// CritiquePrompt builds the system and user prompt for a fresh critique.
func CritiquePrompt(challenge string, decisions critique.PointSet) (system, user string) {
	var b strings.Builder
	b.WriteString("Design challenge:\n")
	if challenge == "" {
		challenge = "(not stated)"
	}
	b.WriteString(challenge)
	b.WriteString("\n\nDecisions:\n")
	for _, d := range decisions {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	return critiqueSystemPrompt, b.String()
}

var toneInstructions = map[critique.Tone]string{
	critique.ToneNormal:     "Keep a neutral, constructive tone.",
	critique.TonePersuasive: "Make each point persuasive: explain the benefit of acting on it.",
	critique.ToneAggressive: "Make each point blunt and forceful, without insults.",
	critique.ToneCritical:   "Make each point sharply critical and skeptical, naming the concrete risk.",
}

// VariantPrompt builds the prompt that renders base under key's tone and level.
func VariantPrompt(base string, key critique.VariantKey) (system, user string) {
	var b strings.Builder
	b.WriteString(toneInstructions[key.Tone])
	if key.Level == critique.LevelSimplified {
		b.WriteString(" Use plain words a newcomer understands, at most 12 words per point.")
	}
	b.WriteString("\n\nPoints:\n")
	b.WriteString(critique.Join(critique.Split(base)))
	return variantSystemPrompt, b.String()
}

// ThemesPrompt asks for a theme list covering points.
func ThemesPrompt(points critique.PointSet, max int) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Group these critique points into at most %d themes.\n", max)
	b.WriteString(`Respond as {"themes":[{"name":"...","color":"yellow|orange|red|pink|purple|blue|green|gray","points":["..."]}]}`)
	b.WriteString("\n\nPoints:\n")
	for _, p := range points {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return themesSystemPrompt, b.String()
}
