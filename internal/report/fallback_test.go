package report

import (
	"encoding/json"
	"math/rand"
	"testing"
)

func TestFallbackRoundTrip(t *testing.T) {
	gen := NewFallbackGenerator(rand.New(rand.NewSource(42)))
	modes := []Mode{ModeHeritage, ModePastLife, ModeCyberArchetype, Mode("UNKNOWN")}
	langs := []Language{LangEnglish, LangTurkish}

	for i := 0; i < 200; i++ {
		mode := modes[i%len(modes)]
		lang := langs[i%len(langs)]
		r := gen.Generate(mode, lang)

		if err := r.Validate(); err != nil {
			t.Fatalf("iteration %d (%s/%s): Validate: %v", i, mode, lang, err)
		}

		raw, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := CheckFields(raw); err != nil {
			t.Fatalf("iteration %d: CheckFields: %v", i, err)
		}
		parsed, err := Parse(string(raw))
		if err != nil {
			t.Fatalf("iteration %d: Parse: %v", i, err)
		}
		if parsed.PrimaryMatch != r.PrimaryMatch {
			t.Errorf("primary changed through Parse: %+v vs %+v", parsed.PrimaryMatch, r.PrimaryMatch)
		}
	}
}

func TestFallbackInvariants(t *testing.T) {
	gen := NewFallbackGenerator(rand.New(rand.NewSource(7)))
	for i := 0; i < 500; i++ {
		r := gen.Generate(ModeCyberArchetype, LangEnglish)

		if len(r.Alternatives) != MaxAlternatives {
			t.Fatalf("alternatives = %d", len(r.Alternatives))
		}
		seen := map[string]bool{r.PrimaryMatch.Name: true}
		for _, alt := range r.Alternatives {
			if alt.Percentage >= r.PrimaryMatch.Percentage {
				t.Fatalf("alternative %d not below primary %d", alt.Percentage, r.PrimaryMatch.Percentage)
			}
			if seen[alt.Name] {
				t.Fatalf("duplicate name %s", alt.Name)
			}
			seen[alt.Name] = true
		}
		for name, score := range r.Attributes.byName() {
			if score < 40 || score > 99 {
				t.Fatalf("%s = %d outside [40,99]", name, score)
			}
		}
	}
}

func TestFallbackIsDeterministicForSeed(t *testing.T) {
	a := NewFallbackGenerator(rand.New(rand.NewSource(99))).Generate(ModePastLife, LangTurkish)
	b := NewFallbackGenerator(rand.New(rand.NewSource(99))).Generate(ModePastLife, LangTurkish)
	if a.PrimaryMatch != b.PrimaryMatch || a.Narrative != b.Narrative {
		t.Error("same seed produced different reports")
	}
}

func TestFallbackUnknownModeUsesHeritagePool(t *testing.T) {
	r := NewFallbackGenerator(rand.New(rand.NewSource(1))).Generate(Mode("SOMETHING_ELSE"), Language("de"))
	found := false
	for _, p := range personaPools[ModeHeritage] {
		if p.name == r.PrimaryMatch.Name {
			found = true
		}
	}
	if !found {
		t.Errorf("primary %q not from heritage pool", r.PrimaryMatch.Name)
	}
}
