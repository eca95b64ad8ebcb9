package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt sets the tone and layout of the generated report.
func GetSystemPrompt() string {
	return `You are a senior digital forensics analyst specialised in image steganalysis.
You write a concise security report for a non-expert reader about a JPEG image that was
checked for hidden embedded payloads.

Requirements:
- Plain text with simple markdown only: "## " section headings, numbered lists "1. ", bullets "- ".
- Sections, in order: Summary, What The Classification Means, Risks, Recommendations.
- Recommendations must be a numbered list of 3 to 6 concrete actions.
- Do not invent numbers that are not given to you.
- Do not include code fences.`
}

// GetUserPrompt builds the user message around a classification label and IQA score.
func GetUserPrompt(label string, iqaScore float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payload classification: %s\n", label)
	fmt.Fprintf(&b, "Image quality assessment (IQA) score: %.2f (%s)\n", iqaScore, FormatPercent(iqaScore))
	if d := Describe(label); d != "" {
		fmt.Fprintf(&b, "Background: %s\n", d)
	}
	b.WriteString("Write the report.")
	return b.String()
}

// Describe returns a one-line description of a known label, "" otherwise.
func Describe(label string) string {
	switch normalize(label) {
	case "jmipod":
		return "JMiPOD is an adaptive JPEG steganography scheme that hides data by minimising statistical detectability of DCT coefficient changes."
	case "juniward":
		return "J-UNIWARD embeds data in JPEG DCT coefficients using a wavelet-based distortion function that favours textured regions."
	case "uerd":
		return "UERD (Uniform Embedding Revisited Distortion) spreads payload changes uniformly across DCT coefficients and blocks."
	case "clean":
		return "clean means no embedding technique was detected in the image."
	default:
		return ""
	}
}

// FormatPercent renders a 0..1 score as a percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func normalize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.ReplaceAll(l, "-", "")
	l = strings.ReplaceAll(l, "_", "")
	return l
}
