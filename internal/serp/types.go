// Package serp defines core types shared across the rank-tracking engine.
package serp

import (
	"fmt"
	"strings"
	"time"
)

// Engine identifies a supported search engine.
type Engine string

// Supported search engines.
const (
	EngineGoogle     Engine = "google"
	EngineBing       Engine = "bing"
	EngineDuckDuckGo Engine = "duckduckgo"
)

// Device is the emulated device class for a tracking session.
type Device string

// Device classes.
const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// Request size limits enforced by Validate.
const (
	MinKeywords   = 1
	MaxKeywords   = 50
	MinMaxResults = 10
	MaxMaxResults = 100
)

// TrackingRequest is the immutable input for one tracking session.
type TrackingRequest struct {
	Keywords     []string     `json:"keywords"`
	TargetDomain string       `json:"target_domain"`
	Engine       Engine       `json:"search_engine"`
	Location     string       `json:"location,omitempty"`
	Language     string       `json:"language,omitempty"`
	Device       Device       `json:"device"`
	MaxResults   int          `json:"max_results"`
	UseProxy     bool         `json:"use_proxy"`
	Proxy        *ProxyHandle `json:"proxy,omitempty"`
	OwnerID      string       `json:"owner_id,omitempty"`
}

// Validate rejects malformed requests before any browser is launched.
func (r TrackingRequest) Validate() error {
	if len(r.Keywords) < MinKeywords || len(r.Keywords) > MaxKeywords {
		return fmt.Errorf("keywords must contain between %d and %d entries, got %d", MinKeywords, MaxKeywords, len(r.Keywords))
	}
	for i, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keyword %d is empty", i)
		}
	}
	if strings.TrimSpace(r.TargetDomain) == "" {
		return fmt.Errorf("target_domain is required")
	}
	switch r.Engine {
	case EngineGoogle, EngineBing, EngineDuckDuckGo:
	default:
		return fmt.Errorf("unsupported search engine %q", r.Engine)
	}
	switch r.Device {
	case DeviceDesktop, DeviceMobile:
	default:
		return fmt.Errorf("unsupported device class %q", r.Device)
	}
	if r.MaxResults < MinMaxResults || r.MaxResults > MaxMaxResults {
		return fmt.Errorf("max_results must be between %d and %d, got %d", MinMaxResults, MaxMaxResults, r.MaxResults)
	}
	return nil
}

// Fingerprint is the browser identity presented for every navigation in a
// session. Generated once per session (regenerated on proxy swap for the
// mobile device class) and never mutated mid-navigation.
type Fingerprint struct {
	UserAgent      string `json:"user_agent"`
	ViewportWidth  int64  `json:"viewport_width"`
	ViewportHeight int64  `json:"viewport_height"`
	Timezone       string `json:"timezone"`
	AcceptLanguage string `json:"accept_language"`
}

// ProxyHandle is an upstream proxy reference. Held only for the duration of
// a session, never persisted.
type ProxyHandle struct {
	Server   string `json:"server"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ExtractedResult is one organic listing pulled from a loaded results page.
// Ephemeral: produced per query and consumed immediately by the matcher.
type ExtractedResult struct {
	Position        int      `json:"position"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Snippet         string   `json:"snippet"`
	Domain          string   `json:"domain"`
	LocalIntent     bool     `json:"local_intent"`
	FeaturedSnippet bool     `json:"featured_snippet"`
	Sitelinks       []string `json:"sitelinks,omitempty"`
}

// FeatureRecord notes which SERP modules were present alongside the organic
// listings. Absence of a marker is not an error.
type FeatureRecord struct {
	FeaturedSnippet bool `json:"featured_snippet"`
	LocalPack       bool `json:"local_pack"`
	Shopping        bool `json:"shopping"`
	Video           bool `json:"video"`
	News            bool `json:"news"`
}

// KeywordRanking is the durable outcome for a single keyword. Rank 0 means
// the target domain was absent from the top MaxResults listings.
type KeywordRanking struct {
	Keyword            string            `json:"keyword"`
	Rank               int               `json:"rank"`
	MatchedURL         string            `json:"matched_url,omitempty"`
	MatchedTitle       string            `json:"matched_title,omitempty"`
	MatchedDescription string            `json:"matched_description,omitempty"`
	Engine             Engine            `json:"search_engine"`
	Location           string            `json:"location,omitempty"`
	Device             Device            `json:"device"`
	CheckedAt          time.Time         `json:"checked_at"`
	Features           FeatureRecord     `json:"features"`
	Competitors        []ExtractedResult `json:"competitors,omitempty"`
	// Partial marks results extracted after the selector wait timed out:
	// the page never reported a known result list, so extraction ran
	// best-effort against whatever DOM was present.
	Partial bool `json:"partial,omitempty"`
}

// Session is the aggregate returned for one tracking run. Results and Errors
// preserve keyword encounter order; once EndedAt is stamped the session is
// immutable and Succeeded+Failed equals the keyword count.
type Session struct {
	ID        string           `json:"id"`
	Request   TrackingRequest  `json:"request"`
	Results   []KeywordRanking `json:"results"`
	Errors    []string         `json:"errors,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Succeeded int              `json:"successful_queries"`
	Failed    int              `json:"failed_queries"`
}

// PerformanceRecord is the persisted row shape for one keyword measurement.
// RankBasisPoints stores rank*100 to match the external analytics format;
// click/impression/CTR fields are zeroed placeholders (not obtainable from
// scraping).
type PerformanceRecord struct {
	Keyword         string  `json:"keyword"`
	OwnerID         string  `json:"owner_id"`
	RankBasisPoints int     `json:"rank_basis_points"`
	URL             string  `json:"url"`
	Clicks          int     `json:"clicks"`
	Impressions     int     `json:"impressions"`
	CTR             float64 `json:"ctr"`
	Device          Device  `json:"device"`
	Country         string  `json:"country"`
	Date            string  `json:"date"` // YYYY-MM-DD
}

// Rank converts the stored basis points back to a position.
func (r PerformanceRecord) Rank() int {
	return r.RankBasisPoints / 100
}
