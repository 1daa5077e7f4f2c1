package model

import "strings"

// responsePrefixes are the label prefixes the model tends to emit before
// the actual reply, in priority order. At most one is stripped.
var responsePrefixes = []string{
	"**Response:**",
	"**Response**",
	"**Answer:**",
	"Response:",
	"Answer:",
}

// CleanResponse strips at most one known leading label prefix from a
// raw completion and trims surrounding whitespace.
func CleanResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	for _, prefix := range responsePrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}
	return cleaned
}
