package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/critique/pkg/domain/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const defaultMaxThemes = 6

const themeSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["themes"],
  "properties": {
    "themes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": { "type": "string" },
          "name": { "type": "string", "minLength": 1 },
          "color": { "type": "string" },
          "points": { "type": "array", "items": { "type": "string" } }
        }
      }
    }
  }
}`

var (
	themeSchemaLoader = gojsonschema.NewStringLoader(themeSchemaJSON)
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type themeEnvelope struct {
	Themes []critique.Theme `json:"themes"`
}

// ThemeGenerator asks the backend to propose themes for a PointSet.
type ThemeGenerator struct {
	provider  ai.Provider
	maxThemes int
	logger    *slog.Logger
}

func NewThemeGenerator(provider ai.Provider, maxThemes int, logger *slog.Logger) *ThemeGenerator {
	if maxThemes <= 0 {
		maxThemes = defaultMaxThemes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThemeGenerator{provider: provider, maxThemes: maxThemes, logger: logger}
}

// Generate returns at most maxThemes validated themes.
func (g *ThemeGenerator) Generate(ctx context.Context, points critique.PointSet) ([]critique.Theme, error) {
	if len(points) == 0 {
		return nil, critique.ErrNotReady
	}
	system, user := ThemesPrompt(points, g.maxThemes)

	start := time.Now()
	text, err := ai.CompleteText(ctx, g.provider, ai.CompletionRequest{Prompt: user, System: system, JSON: true})
	var themes []critique.Theme
	if err == nil {
		themes, err = parseThemes(text)
	}
	observeGeneration(critique.StageThemes, start, err)
	if err != nil {
		return nil, &critique.GenerationError{Stage: critique.StageThemes, Err: err}
	}

	if len(themes) > g.maxThemes {
		themes = themes[:g.maxThemes]
	}
	g.logger.Debug("generated themes", "count", len(themes))
	return themes, nil
}

func parseThemes(text string) ([]critique.Theme, error) {
	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in theme response")
	}

	result, err := gojsonschema.Validate(themeSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate theme response: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("theme response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var env themeEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode theme response: %w", err)
	}

	seen := make(map[string]bool)
	themes := make([]critique.Theme, 0, len(env.Themes))
	for _, t := range env.Themes {
		t.Name = strings.TrimSpace(t.Name)
		key := strings.ToLower(t.Name)
		if t.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		t.Color = critique.ThemeColor(strings.ToLower(strings.TrimSpace(string(t.Color))))
		if !t.Color.IsValid() {
			t.Color = critique.AllThemeColors()[len(themes)%len(critique.AllThemeColors())]
		}
		t.Selected = true
		themes = append(themes, t)
	}
	if len(themes) == 0 {
		return nil, critique.ErrNoThemes
	}
	return themes, nil
}
