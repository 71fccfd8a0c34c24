package application

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

func TestCritiquePrompt(t *testing.T) {
	system, user := CritiquePrompt("", critique.PointSet{"Drop dark mode", "Ship weekly"})
	if system != critiqueSystemPrompt {
		t.Error("unexpected system prompt")
	}
	for _, want := range []string{"(not stated)", "- Drop dark mode\n", "- Ship weekly\n"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestVariantPrompt(t *testing.T) {
	key := critique.VariantKey{Level: critique.LevelSimplified, Tone: critique.ToneCritical, Epoch: 1}
	_, user := VariantPrompt("One\n2. Two", key)
	if !strings.HasPrefix(user, toneInstructions[critique.ToneCritical]) {
		t.Errorf("prompt should open with the tone instruction: %q", user)
	}
	if !strings.Contains(user, "plain words") {
		t.Error("simplified prompt should ask for plain words")
	}
	if !strings.HasSuffix(user, "Points:\nOne ** Two") {
		t.Errorf("points should be normalised, got %q", user)
	}

	_, full := VariantPrompt("One", critique.VariantKey{Level: critique.LevelFull, Tone: critique.ToneNormal})
	if strings.Contains(full, "plain words") {
		t.Error("full level must not simplify")
	}
}

func TestThemesPrompt(t *testing.T) {
	_, user := ThemesPrompt(critique.PointSet{"a"}, 4)
	if !strings.Contains(user, "at most 4 themes") || !strings.Contains(user, "- a\n") {
		t.Errorf("unexpected themes prompt %q", user)
	}
}
