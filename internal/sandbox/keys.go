package sandbox

import (
	"strings"

	"github.com/tatianab/impact-sandbox/internal/models"
)

const keySep = "-"

// AllocationKey builds the "<neighborhood>-<intervention>" key used in
// allocation maps.
func AllocationKey(neighborhood, intervention string) string {
	return neighborhood + keySep + intervention
}

// SplitAllocationKey resolves key against the scenario's names. Names may
// themselves contain hyphens ("Utility-Scale Solar Farm"), so every split
// point is tried. A split whose halves are both known wins; failing that, the
// first split naming a known intervention is returned with ok false.
func SplitAllocationKey(key string, s *models.Scenario) (neighborhood, intervention string, ok bool) {
	var fallbackN, fallbackI string
	found := false
	for i := 0; i < len(key); i++ {
		j := strings.Index(key[i:], keySep)
		if j < 0 {
			break
		}
		i += j
		n, in := key[:i], key[i+len(keySep):]
		_, knownN := s.Neighborhoods[n]
		_, knownI := s.Interventions[in]
		if knownN && knownI {
			return n, in, true
		}
		if knownI && !found {
			fallbackN, fallbackI, found = n, in, true
		}
	}
	if found {
		return fallbackN, fallbackI, false
	}
	n, in, _ := strings.Cut(key, keySep)
	return n, in, false
}
