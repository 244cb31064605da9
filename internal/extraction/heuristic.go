package extraction

import "strings"

// boundaryMarkers precede location mentions in free text. Checked in
// order, so "in " wins over "near " when both appear.
var boundaryMarkers = []string{"in ", "at ", "near ", "around "}

// HeuristicLocation scans description for a boundary marker and
// returns the text following the first match, truncated at the next
// sentence-terminating punctuation. Candidates of trimmed length 2 or
// less are rejected.
func HeuristicLocation(description string) (string, bool) {
	lower := strings.ToLower(description)

	for _, marker := range boundaryMarkers {
		idx := strings.Index(lower, marker)
		if idx == -1 {
			continue
		}

		candidate := description[idx+len(marker):]
		if cut := strings.IndexAny(candidate, ",.!?"); cut != -1 {
			candidate = candidate[:cut]
		}
		candidate = strings.TrimSpace(candidate)

		if len(candidate) > 2 {
			return candidate, true
		}
	}

	return "", false
}
