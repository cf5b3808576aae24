// model.go - Biometric report data model

package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Percentage band for the primary match.
const (
	MinMatchPercentage = 70
	MaxMatchPercentage = 99
	MinAttributeScore  = 0
	MaxAttributeScore  = 100
	MaxAlternatives    = 2
)

// Mode selects the analysis persona. It only changes prompt content.
type Mode string

const (
	ModeHeritage       Mode = "HERITAGE"
	ModePastLife       Mode = "PAST_LIFE"
	ModeCyberArchetype Mode = "CYBER_ARCHETYPE"
)

// Style selects the narrative tone.
type Style string

const (
	StyleScientific Style = "SCIENTIFIC"
	StyleRoast      Style = "ROAST"
)

// Language selects the output language.
type Language string

const (
	LangEnglish Language = "en"
	LangTurkish Language = "tr"
)

// ParseMode normalizes user input; unknown values are passed through as-is.
func ParseMode(s string) Mode {
	return Mode(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseStyle normalizes user input; anything but ROAST is SCIENTIFIC.
func ParseStyle(s string) Style {
	if Style(strings.ToUpper(strings.TrimSpace(s))) == StyleRoast {
		return StyleRoast
	}
	return StyleScientific
}

// ParseLanguage normalizes user input; anything but tr is English.
func ParseLanguage(s string) Language {
	if Language(strings.ToLower(strings.TrimSpace(s))) == LangTurkish {
		return LangTurkish
	}
	return LangEnglish
}

// AnalysisRequest is built per user submission and consumed once.
type AnalysisRequest struct {
	Image    []byte
	MIMEType string
	Mode     Mode
	Style    Style
	Language Language
}

// Metrics holds free-text facial structure descriptors.
type Metrics struct {
	Cheekbones string `json:"cheekbones" bson:"cheekbones"`
	Eyes       string `json:"eyes" bson:"eyes"`
	Jawline    string `json:"jawline" bson:"jawline"`
}

// Match is the primary lookalike.
type Match struct {
	Name       string     `json:"name" bson:"name"`
	Percentage Percentage `json:"percentage" bson:"percentage"`
	Reason     string     `json:"reason" bson:"reason"`
}

// Alternative is a secondary lookalike.
type Alternative struct {
	Name       string     `json:"name" bson:"name"`
	Percentage Percentage `json:"percentage" bson:"percentage"`
}

// Attributes are the five personality scores, each in [0,100].
type Attributes struct {
	Intelligence Score `json:"intelligence" bson:"intelligence"`
	Dominance    Score `json:"dominance" bson:"dominance"`
	Creativity   Score `json:"creativity" bson:"creativity"`
	Resilience   Score `json:"resilience" bson:"resilience"`
	Charisma     Score `json:"charisma" bson:"charisma"`
}

// AnalysisReport is the final output of one analysis. Treat it as immutable once produced.
type AnalysisReport struct {
	Metrics      Metrics       `json:"metrics" bson:"metrics"`
	PrimaryMatch Match         `json:"primaryMatch" bson:"primary_match"`
	Alternatives []Alternative `json:"alternatives" bson:"alternatives"`
	Attributes   Attributes    `json:"attributes" bson:"attributes"`
	Narrative    string        `json:"narrative" bson:"narrative"`
}

// Validate checks every report invariant.
func (r *AnalysisReport) Validate() error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	if strings.TrimSpace(r.PrimaryMatch.Name) == "" {
		return fmt.Errorf("primary match name is empty")
	}
	if p := int(r.PrimaryMatch.Percentage); p < MinMatchPercentage || p > MaxMatchPercentage {
		return fmt.Errorf("primary match percentage %d outside [%d,%d]", p, MinMatchPercentage, MaxMatchPercentage)
	}
	if len(r.Alternatives) != MaxAlternatives {
		return fmt.Errorf("expected %d alternatives, got %d", MaxAlternatives, len(r.Alternatives))
	}
	for i, alt := range r.Alternatives {
		if strings.TrimSpace(alt.Name) == "" {
			return fmt.Errorf("alternative %d has no name", i)
		}
		if alt.Percentage < 0 || alt.Percentage > r.PrimaryMatch.Percentage {
			return fmt.Errorf("alternative %d percentage %d outranks primary %d", i, alt.Percentage, r.PrimaryMatch.Percentage)
		}
	}
	for name, score := range r.Attributes.byName() {
		if score < MinAttributeScore || score > MaxAttributeScore {
			return fmt.Errorf("attribute %s score %d outside [0,100]", name, score)
		}
	}
	if strings.TrimSpace(r.Narrative) == "" {
		return fmt.Errorf("narrative is empty")
	}
	return nil
}

func (a Attributes) byName() map[string]Score {
	return map[string]Score{
		"intelligence": a.Intelligence,
		"dominance":    a.Dominance,
		"creativity":   a.Creativity,
		"resilience":   a.Resilience,
		"charisma":     a.Charisma,
	}
}

// Percentage is an integer percentage that unmarshals from numbers or strings like "87" or "87%".
type Percentage int

func (p *Percentage) UnmarshalJSON(data []byte) error {
	n, err := parseFlexibleNumber(data)
	if err != nil {
		return fmt.Errorf("percentage: %w", err)
	}
	*p = Percentage(math.Round(n))
	return nil
}

// Score is an integer attribute score that unmarshals from numbers or numeric strings.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	n, err := parseFlexibleNumber(data)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = Score(math.Round(n))
	return nil
}

// parseFlexibleNumber accepts a JSON number, a numeric string (optionally with %), or null.
func parseFlexibleNumber(data []byte) (float64, error) {
	if string(data) == "null" {
		return 0, nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		return num, nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return 0, fmt.Errorf("cannot unmarshal %s as number or string", string(data))
	}

	str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
	str = strings.TrimPrefix(str, "%")
	if str == "" {
		return 0, nil
	}
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse string %q as number: %w", str, err)
	}
	return num, nil
}

// ShareText renders the text posted alongside a shared report card.
func (r *AnalysisReport) ShareText(lang Language) string {
	if lang == LangTurkish {
		return fmt.Sprintf("🧬 GLOBAL MİRAS RAPORU\n👤 EŞLEŞME: %s\n📊 SKOR: %%%d\n\n🔍 Biyometrik analizini şimdi yap:",
			r.PrimaryMatch.Name, r.PrimaryMatch.Percentage)
	}
	return fmt.Sprintf("🧬 GLOBAL HERITAGE REPORT\n👤 MATCH: %s\n📊 SCORE: %%%d\n\n🔍 Analyze your biometrics now:",
		r.PrimaryMatch.Name, r.PrimaryMatch.Percentage)
}
