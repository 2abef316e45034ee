package serp

import "strings"

// MaxCompetitors caps the competitor list attached to a keyword ranking.
const MaxCompetitors = 10

// Match scans ordered results for the first entry whose domain equals or
// contains the target domain. A miss yields rank 0 with a nil match and the
// leading results as competitors: callers still want visibility into who
// occupies the top spots, so rank 0 is a value, not an error.
func Match(results []ExtractedResult, targetDomain string) (int, *ExtractedResult, []ExtractedResult) {
	target := normalizeDomain(targetDomain)

	for i := range results {
		if !domainMatches(results[i].Domain, target) {
			continue
		}
		matched := results[i]
		competitors := make([]ExtractedResult, 0, MaxCompetitors)
		for j := range results {
			if j == i {
				continue
			}
			competitors = append(competitors, results[j])
			if len(competitors) == MaxCompetitors {
				break
			}
		}
		return matched.Position, &matched, competitors
	}

	competitors := results
	if len(competitors) > MaxCompetitors {
		competitors = competitors[:MaxCompetitors]
	}
	return 0, nil, competitors
}

func domainMatches(candidate, target string) bool {
	candidate = normalizeDomain(candidate)
	if candidate == "" || target == "" {
		return false
	}
	return candidate == target || strings.Contains(candidate, target)
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}
