package registry

import "strings"

// AdmissionFilter decides whether a well-known bus name should be tracked
// at all (spec §4.C). The blacklist is evaluated first; an empty
// whitelist allows everything the blacklist didn't already reject.
type AdmissionFilter struct {
	Whitelist []string
	Blacklist []string
}

// Allows reports whether name passes the filter.
func (f AdmissionFilter) Allows(name string) bool {
	for _, substr := range f.Blacklist {
		if substr != "" && strings.Contains(name, substr) {
			return false
		}
	}
	if len(f.Whitelist) == 0 {
		return true
	}
	for _, substr := range f.Whitelist {
		if substr != "" && strings.Contains(name, substr) {
			return true
		}
	}
	return false
}
