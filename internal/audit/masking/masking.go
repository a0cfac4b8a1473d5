// Package masking redacts credentials before they reach the audit log.
package masking

import "strings"

const (
	maskToken = "****"
	// Secrets shorter than this are masked completely.
	minRevealLength = 12
)

// MaskSecret hides a client secret, keeping the last four characters of long
// values so administrators can tell secrets apart.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) < minRevealLength {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// Redact returns a copy of metadata with the string values under keys masked.
// Empty values are dropped.
func Redact(metadata map[string]any, keys ...string) map[string]any {
	if metadata == nil {
		return nil
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[key] = struct{}{}
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if _, ok := sensitive[key]; !ok {
			out[key] = value
			continue
		}
		str, ok := value.(string)
		if !ok {
			out[key] = maskToken
			continue
		}
		if masked := MaskSecret(str); masked != "" {
			out[key] = masked
		}
	}
	return out
}
