package serp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeResults(n int, domains ...string) []ExtractedResult {
	results := make([]ExtractedResult, n)
	for i := range results {
		domain := fmt.Sprintf("site%d.example", i+1)
		if i < len(domains) && domains[i] != "" {
			domain = domains[i]
		}
		results[i] = ExtractedResult{
			Position: i + 1,
			Title:    fmt.Sprintf("Result %d", i+1),
			URL:      "https://" + domain + "/page",
			Domain:   domain,
		}
	}
	return results
}

func TestMatchFindsTargetAtPosition(t *testing.T) {
	results := makeResults(10, "", "", "acme.com")

	rank, matched, competitors := Match(results, "acme.com")

	require.Equal(t, 3, rank)
	require.NotNil(t, matched)
	require.Equal(t, "acme.com", matched.Domain)
	require.Len(t, competitors, 9)
	for _, c := range competitors {
		require.NotEqual(t, "acme.com", c.Domain)
	}
}

func TestMatchAbsentTargetYieldsRankZero(t *testing.T) {
	results := makeResults(10)

	rank, matched, competitors := Match(results, "acme.com")

	require.Equal(t, 0, rank)
	require.Nil(t, matched)
	require.Len(t, competitors, 10, "caller still sees who holds the top spots")
}

func TestMatchCompetitorsCappedAtTen(t *testing.T) {
	results := makeResults(25, "acme.com")

	rank, _, competitors := Match(results, "acme.com")
	require.Equal(t, 1, rank)
	require.Len(t, competitors, MaxCompetitors)

	_, _, unmatched := Match(results, "missing.example")
	require.Len(t, unmatched, MaxCompetitors)
}

func TestMatchSubdomainAndWWWVariants(t *testing.T) {
	results := makeResults(5, "", "www.acme.com")
	rank, matched, _ := Match(results, "acme.com")
	require.Equal(t, 2, rank)
	require.NotNil(t, matched)

	results = makeResults(5, "", "", "blog.acme.com")
	rank, _, _ = Match(results, "acme.com")
	require.Equal(t, 3, rank, "substring match covers subdomains")
}

func TestMatchEmptyResults(t *testing.T) {
	rank, matched, competitors := Match(nil, "acme.com")
	require.Equal(t, 0, rank)
	require.Nil(t, matched)
	require.Empty(t, competitors)
}
