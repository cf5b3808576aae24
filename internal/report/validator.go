// validator.go - Model response cleanup, field checks and normalization

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for any response that cannot become a complete report.
var ErrMalformed = errors.New("malformed model response")

// requiredFields are the top-level keys every report must carry. Values are accepted aliases
// older prompt revisions produced.
var requiredFields = []struct {
	name    string
	aliases []string
}{
	{"metrics", nil},
	{"primaryMatch", []string{"mainMatch"}},
	{"alternatives", nil},
	{"narrative", []string{"soulSignature"}},
	{"attributes", nil},
}

// wireReport mirrors AnalysisReport with the alias keys still separate. Pointer leaves
// distinguish a missing or null value from a zero one.
type wireReport struct {
	Metrics       *wireMetrics    `json:"metrics"`
	PrimaryMatch  *wireMatch      `json:"primaryMatch"`
	MainMatch     *wireMatch      `json:"mainMatch"`
	Alternatives  []Alternative   `json:"alternatives"`
	Attributes    *wireAttributes `json:"attributes"`
	Narrative     *string         `json:"narrative"`
	SoulSignature *string         `json:"soulSignature"`
}

type wireMetrics struct {
	Cheekbones *string `json:"cheekbones"`
	Eyes       *string `json:"eyes"`
	Jawline    *string `json:"jawline"`
}

type wireMatch struct {
	Name       string      `json:"name"`
	Percentage *Percentage `json:"percentage"`
	Reason     string      `json:"reason"`
}

type wireAttributes struct {
	Intelligence *Score `json:"intelligence"`
	Dominance    *Score `json:"dominance"`
	Creativity   *Score `json:"creativity"`
	Resilience   *Score `json:"resilience"`
	Charisma     *Score `json:"charisma"`
}

// Parse turns raw model text into a normalized report.
// Any failure wraps ErrMalformed; there is no partial recovery.
func Parse(raw string) (*AnalysisReport, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	body = fixJSONEscaping(body)

	if err := CheckFields([]byte(body)); err != nil {
		return nil, err
	}

	var w wireReport
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	match := w.PrimaryMatch
	if match == nil {
		match = w.MainMatch
	}
	narrative := w.Narrative
	if narrative == nil {
		narrative = w.SoulSignature
	}

	metrics, err := w.Metrics.complete()
	if err != nil {
		return nil, err
	}
	attributes, err := w.Attributes.complete()
	if err != nil {
		return nil, err
	}
	if match == nil || strings.TrimSpace(match.Name) == "" {
		return nil, fmt.Errorf("%w: primaryMatch.name is empty", ErrMalformed)
	}
	if match.Percentage == nil {
		return nil, fmt.Errorf("%w: primaryMatch.percentage is missing", ErrMalformed)
	}
	if narrative == nil || strings.TrimSpace(*narrative) == "" {
		return nil, fmt.Errorf("%w: narrative is empty", ErrMalformed)
	}

	alternatives := keepNamedAlternatives(w.Alternatives)
	if len(alternatives) < MaxAlternatives {
		return nil, fmt.Errorf("%w: %d named alternatives, want %d", ErrMalformed, len(alternatives), MaxAlternatives)
	}

	r := &AnalysisReport{
		Metrics: metrics,
		PrimaryMatch: Match{
			Name:       match.Name,
			Percentage: *match.Percentage,
			Reason:     match.Reason,
		},
		Alternatives: alternatives,
		Attributes:   attributes,
		Narrative:    *narrative,
	}
	Normalize(r)
	return r, nil
}

func (m *wireMetrics) complete() (Metrics, error) {
	if m == nil {
		return Metrics{}, fmt.Errorf("%w: metrics is missing", ErrMalformed)
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"cheekbones", m.Cheekbones},
		{"eyes", m.Eyes},
		{"jawline", m.Jawline},
	}
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return Metrics{}, fmt.Errorf("%w: metrics.%s is empty", ErrMalformed, f.name)
		}
	}
	return Metrics{Cheekbones: *m.Cheekbones, Eyes: *m.Eyes, Jawline: *m.Jawline}, nil
}

func (a *wireAttributes) complete() (Attributes, error) {
	if a == nil {
		return Attributes{}, fmt.Errorf("%w: attributes is missing", ErrMalformed)
	}
	fields := []struct {
		name  string
		value *Score
	}{
		{"intelligence", a.Intelligence},
		{"dominance", a.Dominance},
		{"creativity", a.Creativity},
		{"resilience", a.Resilience},
		{"charisma", a.Charisma},
	}
	for _, f := range fields {
		if f.value == nil {
			return Attributes{}, fmt.Errorf("%w: attributes.%s is missing", ErrMalformed, f.name)
		}
	}
	return Attributes{
		Intelligence: *a.Intelligence,
		Dominance:    *a.Dominance,
		Creativity:   *a.Creativity,
		Resilience:   *a.Resilience,
		Charisma:     *a.Charisma,
	}, nil
}

// CheckFields reports whether every required top-level field is present and non-null.
func CheckFields(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var missing []string
	for _, f := range requiredFields {
		if present(fields, f.name) {
			continue
		}
		found := false
		for _, alias := range f.aliases {
			if present(fields, alias) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return nil
}

func present(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	return ok && strings.TrimSpace(string(v)) != "null"
}

// Normalize clamps every score into its band and trims the alternatives list.
func Normalize(r *AnalysisReport) {
	r.PrimaryMatch.Percentage = Percentage(clamp(int(r.PrimaryMatch.Percentage), MinMatchPercentage, MaxMatchPercentage))

	if len(r.Alternatives) > MaxAlternatives {
		r.Alternatives = r.Alternatives[:MaxAlternatives]
	}
	for i := range r.Alternatives {
		r.Alternatives[i].Percentage = Percentage(clamp(int(r.Alternatives[i].Percentage), 0, int(r.PrimaryMatch.Percentage)))
	}

	a := &r.Attributes
	for _, s := range []*Score{&a.Intelligence, &a.Dominance, &a.Creativity, &a.Resilience, &a.Charisma} {
		*s = Score(clamp(int(*s), MinAttributeScore, MaxAttributeScore))
	}
}

func keepNamedAlternatives(alts []Alternative) []Alternative {
	kept := make([]Alternative, 0, len(alts))
	for _, alt := range alts {
		if strings.TrimSpace(alt.Name) != "" {
			kept = append(kept, alt)
		}
	}
	return kept
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExtractJSON strips markdown fences and any prose around the outermost JSON object.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformed)
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}
	return s[start : end+1], nil
}

// fixJSONEscaping escapes raw control characters that models sometimes emit inside
// JSON string values (literal newlines in the narrative are the usual culprit).
func fixJSONEscaping(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, ch := range s {
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteRune(ch)
			continue
		}

		switch {
		case escaped:
			escaped = false
			b.WriteRune(ch)
		case ch == '\\':
			escaped = true
			b.WriteRune(ch)
		case ch == '"':
			inString = false
			b.WriteRune(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		case ch < 0x20:
			fmt.Fprintf(&b, `\u%04x`, ch)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
