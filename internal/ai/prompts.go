// prompts.go - Centralized prompt templates for biometric analysis
package ai

import (
	"fmt"
	"strings"

	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
)

// Prompt is the full instruction set for one analysis.
type Prompt struct {
	System            string
	User              string
	SchemaDescription string
}

// ============================================================================
// 📋 SECTION 1: CONFIGURATION LINES
// ============================================================================

func languageInstruction(lang report.Language) string {
	if lang == report.LangTurkish {
		return "OUTPUT LANGUAGE: TURKISH (Türkçe). Every string value in the JSON must be written in Turkish."
	}
	return "OUTPUT LANGUAGE: ENGLISH. Every string value in the JSON must be written in English."
}

func toneInstruction(style report.Style) string {
	if style == report.StyleRoast {
		return "Sarcastic, Sharp, Funny (Roast Mode). Tease the subject playfully, never cruelly."
	}
	return "Scientific, Professional, Biometric Analysis."
}

// taskFraming describes what the face is compared against. Unknown modes get the general framing.
func taskFraming(mode report.Mode) (string, string) {
	switch mode {
	case report.ModePastLife:
		return string(report.ModePastLife),
			"Analyze the facial features of the uploaded image and determine who this person was in a past life: a historical role, profession or archetype from any era."
	case report.ModeCyberArchetype:
		return string(report.ModeCyberArchetype),
			"Analyze the facial features of the uploaded image and assign the cyberpunk archetype (netrunner, fixer, street samurai, corporate agent and similar) this face fits best."
	default:
		return string(report.ModeHeritage),
			"Analyze the facial features of the uploaded image and find a resemblance to a historical figure or celebrity."
	}
}

// ============================================================================
// 📋 SECTION 2: INSTRUCTIONS
// ============================================================================

func instructionList() string {
	return fmt.Sprintf(`INSTRUCTIONS:
1. Identify facial landmarks (jawline, cheekbones, eye spacing).
2. Find the closest match and two runner-up alternatives.
3. Calculate the match percentage (must be an integer between %d and %d). Alternatives must score lower than the main match.
4. Provide short "metrics" descriptors (e.g., "Angular", "High-set").
5. Write a "narrative": a deep psychological reading based on the face.
6. Generate 5 personality attribute scores (integers 0-100).

IMPORTANT:
- DO NOT say "I cannot identify". Make a best-effort match based on visual geometry.
- Return ONLY valid JSON. No markdown formatting, no code fences, no commentary.`,
		report.MinMatchPercentage, report.MaxMatchPercentage)
}

// ============================================================================
// 📋 SECTION 3: PROMPT ASSEMBLY
// ============================================================================

// BuildPrompt assembles the system instruction for mode, style and lang.
// It is pure: identical inputs always yield identical prompts.
func BuildPrompt(mode report.Mode, style report.Style, lang report.Language) Prompt {
	modeName, framing := taskFraming(mode)

	var sb strings.Builder
	sb.WriteString("SYSTEM ROLE: You are an advanced Biometric AI Engine.\n")
	sb.WriteString("TASK: " + framing + "\n")
	sb.WriteString(languageInstruction(lang) + "\n\n")

	sb.WriteString("CONFIGURATION:\n")
	sb.WriteString("- MODE: " + modeName + "\n")
	sb.WriteString("- TONE: " + toneInstruction(style) + "\n\n")

	sb.WriteString(instructionList() + "\n\n")

	schema := GetOutputFormatJSON()
	sb.WriteString("JSON STRUCTURE:\n")
	sb.WriteString(schema)

	return Prompt{
		System:            sb.String(),
		User:              "Analyze this face and return the JSON report.",
		SchemaDescription: schema,
	}
}
