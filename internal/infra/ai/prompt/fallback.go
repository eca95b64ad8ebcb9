package prompt

import (
	"fmt"
	"strings"
)

// Fallback composes the canned report used when the LLM call fails.
func Fallback(label string, iqaScore float64) string {
	var summary, meaning string
	var risks, recs []string

	switch normalize(label) {
	case "jmipod":
		summary = "The image very likely carries a hidden payload embedded with JMiPOD."
		meaning = Describe(label)
		risks = []string{
			"Covert exfiltration of data through shared or published images.",
			"Hidden command-and-control instructions delivered to malware.",
		}
		recs = []string{
			"Quarantine the image and stop further distribution.",
			"Identify the source and every system that received the file.",
			"Re-encode or strip the image before any legitimate reuse.",
			"Review outbound traffic for similar JPEG transfers.",
		}
	case "juniward":
		summary = "The image very likely carries a hidden payload embedded with J-UNIWARD."
		meaning = Describe(label)
		risks = []string{
			"Payload concentrated in textured regions is hard to spot visually.",
			"Possible covert channel between compromised hosts.",
		}
		recs = []string{
			"Quarantine the image and preserve the original for forensics.",
			"Trace the upload path and the accounts involved.",
			"Recompress suspicious JPEGs at ingestion points.",
			"Add steganalysis screening to file-sharing gateways.",
		}
	case "uerd":
		summary = "The image very likely carries a hidden payload embedded with UERD."
		meaning = Describe(label)
		risks = []string{
			"Uniformly spread changes survive casual inspection.",
			"Data leakage through images attached to documents or chats.",
		}
		recs = []string{
			"Quarantine the image and block its hash.",
			"Audit where the image was sent or published.",
			"Strip metadata and re-encode images on upload.",
			"Schedule periodic scans of image repositories.",
		}
	case "clean":
		summary = "No embedded payload was detected in the image."
		meaning = Describe(label)
		risks = []string{
			"Low residual risk: detectors can miss payloads at very low embedding rates.",
		}
		recs = []string{
			"No immediate action is required.",
			"Keep scanning images received from untrusted sources.",
			"Re-run the analysis if the file is modified or re-shared.",
		}
	default:
		summary = fmt.Sprintf("The classifier returned %q, which is not a known embedding technique.", label)
		meaning = "The label could not be mapped to a documented steganography scheme."
		risks = []string{
			"Unknown classification; the image may still contain hidden data.",
		}
		recs = []string{
			"Treat the image as suspicious until reviewed manually.",
			"Re-run the analysis or escalate to a forensics analyst.",
			"Do not redistribute the file in the meantime.",
		}
	}

	var b strings.Builder
	b.WriteString("## Summary\n")
	b.WriteString(summary + "\n")
	fmt.Fprintf(&b, "Payload classification: %s. Image quality (IQA) score: %.2f (%s).\n", label, iqaScore, FormatPercent(iqaScore))
	if iqaScore < 0.5 {
		b.WriteString("The low image quality reduces the confidence of this result.\n")
	}
	b.WriteString("\n## What The Classification Means\n")
	b.WriteString(meaning + "\n")
	b.WriteString("\n## Risks\n")
	for _, r := range risks {
		b.WriteString("- " + r + "\n")
	}
	b.WriteString("\n## Recommendations\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}
