package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback_KnownLabels(t *testing.T) {
	cases := map[string]string{
		"JMiPOD":   "JMiPOD",
		"JUNIWARD": "J-UNIWARD",
		"UERD":     "UERD",
		"clean":    "No embedded payload",
	}
	for label, want := range cases {
		t.Run(label, func(t *testing.T) {
			out := Fallback(label, 0.9)
			assert.Contains(t, out, want)
			assert.Contains(t, out, "## Recommendations")
			assert.Contains(t, out, "1. ")
			assert.NotContains(t, out, "not a known embedding technique")
		})
	}
}

func TestFallback_UnknownLabel(t *testing.T) {
	out := Fallback("mystery", 0.8)
	assert.Contains(t, out, `"mystery"`)
	assert.Contains(t, out, "not a known embedding technique")
}

func TestFallback_LowQualityNote(t *testing.T) {
	assert.Contains(t, Fallback("clean", 0.2), "low image quality")
	assert.NotContains(t, Fallback("clean", 0.95), "low image quality")
}

func TestGetUserPrompt(t *testing.T) {
	p := GetUserPrompt("uerd", 0.875)
	assert.Contains(t, p, "Payload classification: uerd")
	assert.Contains(t, p, "87.5%")
	assert.Contains(t, p, "Uniform Embedding")
}
