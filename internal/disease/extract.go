// Package disease recovers disease labels from report narratives.
//
// Primary reports carry the label as "Sykdom: <label>, ..." while neighbor
// alerts carry it as "NABOVARSEL: Smitte (<label>)". The two encodings are
// handled by separate rules.
package disease

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// PrimaryMarker precedes the disease label in a primary report narrative
	PrimaryMarker = "Sykdom:"

	// NeighborPrefix starts the marker embedded in neighbor alert narratives
	NeighborPrefix = "NABOVARSEL: Smitte"
)

var neighborPattern = regexp.MustCompile(`NABOVARSEL: Smitte \(([^)]*)\)`)

// ExtractPrimary returns the label following "Sykdom:" up to the next comma
// or end of text, trimmed. ok is false when the marker is absent or the
// label is empty.
func ExtractPrimary(text string) (label string, ok bool) {
	idx := strings.Index(text, PrimaryMarker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(PrimaryMarker):]
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	label = strings.TrimSpace(rest)
	return label, label != ""
}

// ExtractNeighbor returns the label inside "NABOVARSEL: Smitte (<label>)".
func ExtractNeighbor(text string) (label string, ok bool) {
	m := neighborPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	label = strings.TrimSpace(m[1])
	return label, label != ""
}

// NeighborMarker renders the marker embedded in a neighbor alert narrative
func NeighborMarker(label string) string {
	return fmt.Sprintf("%s (%s)", NeighborPrefix, label)
}

// PrimaryNarrative composes a report narrative that ExtractPrimary can read back
func PrimaryNarrative(label, description string) string {
	label = strings.TrimSpace(label)
	description = strings.TrimSpace(description)
	if label == "" {
		return description
	}
	if description == "" {
		return fmt.Sprintf("%s %s", PrimaryMarker, label)
	}
	return fmt.Sprintf("%s %s, %s", PrimaryMarker, label, description)
}
