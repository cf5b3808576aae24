// prompt_output_format.go - JSON Output Format Schema
//
// The literal shape written into the prompt and the equivalent genai schema
// handed to the SDK client. Keep the two in sync.

package ai

import "github.com/google/generative-ai-go/genai"

// GetOutputFormatJSON returns the JSON shape the model must answer with.
func GetOutputFormatJSON() string {
	return `{
  "metrics": { "cheekbones": "string", "eyes": "string", "jawline": "string" },
  "primaryMatch": { "name": "string", "percentage": number, "reason": "string" },
  "alternatives": [ { "name": "string", "percentage": number }, { "name": "string", "percentage": number } ],
  "attributes": { "intelligence": number, "dominance": number, "creativity": number, "resilience": number, "charisma": number },
  "narrative": "string"
}`
}

// ReportSchema creates the response schema for structured output.
func ReportSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	integer := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeInteger, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"metrics": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"cheekbones": str("Short cheekbone descriptor"),
					"eyes":       str("Short eye descriptor"),
					"jawline":    str("Short jawline descriptor"),
				},
				Required: []string{"cheekbones", "eyes", "jawline"},
			},
			"primaryMatch": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":       str("Name of the closest match"),
					"percentage": integer("Match percentage between 70 and 99"),
					"reason":     str("Why the face matches"),
				},
				Required: []string{"name", "percentage", "reason"},
			},
			"alternatives": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":       str("Name of the alternative match"),
						"percentage": integer("Lower than the primary match percentage"),
					},
					Required: []string{"name", "percentage"},
				},
			},
			"attributes": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intelligence": integer("0-100"),
					"dominance":    integer("0-100"),
					"creativity":   integer("0-100"),
					"resilience":   integer("0-100"),
					"charisma":     integer("0-100"),
				},
				Required: []string{"intelligence", "dominance", "creativity", "resilience", "charisma"},
			},
			"narrative": str("Psychological reading based on the face"),
		},
		Required: []string{"metrics", "primaryMatch", "alternatives", "attributes", "narrative"},
	}
}
