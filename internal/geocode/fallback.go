package geocode

import "strings"

type fallbackEntry struct {
	name      string
	latitude  float64
	longitude float64
}

// fallbackTable maps well-known city substrings to coordinates. Only
// consulted after every live provider has failed. Ordered so matching
// is deterministic when a subject mentions more than one city.
var fallbackTable = []fallbackEntry{
	{"manhattan", 40.7829, -73.9654},
	{"nyc", 40.7128, -74.0060},
	{"los angeles", 34.0522, -118.2437},
	{"chicago", 41.8781, -87.6298},
	{"houston", 29.7604, -95.3698},
}

// lookupFallback matches subject against the table by case-insensitive
// substring containment.
func lookupFallback(subject string) (Result, bool) {
	key := strings.ToLower(subject)
	for _, e := range fallbackTable {
		if strings.Contains(key, e.name) {
			return Result{
				Latitude:         e.latitude,
				Longitude:        e.longitude,
				FormattedAddress: subject,
			}, true
		}
	}
	return Result{}, false
}
