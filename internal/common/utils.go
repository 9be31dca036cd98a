package common

import "strings"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CityOrDefault returns city trimmed, or def when city is blank.
func CityOrDefault(city, def string) string {
	if c := strings.TrimSpace(city); c != "" {
		return c
	}
	return def
}
