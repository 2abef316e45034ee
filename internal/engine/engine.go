// Package engine implements per-search-engine query construction and result
// extraction. Each supported engine is a tagged variant of Adapter: adding an
// engine means adding a rule set and a URL branch, not a new type hierarchy.
package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rankscout/serptrack/internal/serp"
)

// Adapter is the engine-specific strategy consumed by the session loop. It is
// pure: no browser state, no side effects.
type Adapter struct {
	engine serp.Engine
	rules  ruleSet
}

// ForEngine returns the adapter for the requested engine.
func ForEngine(e serp.Engine) (*Adapter, error) {
	switch e {
	case serp.EngineGoogle:
		return &Adapter{engine: e, rules: googleRules}, nil
	case serp.EngineBing:
		return &Adapter{engine: e, rules: bingRules}, nil
	case serp.EngineDuckDuckGo:
		return &Adapter{engine: e, rules: duckduckgoRules}, nil
	default:
		return nil, fmt.Errorf("unsupported search engine %q", e)
	}
}

// Engine reports which engine this adapter targets.
func (a *Adapter) Engine() serp.Engine {
	return a.engine
}

// ResultSelectors is the ordered list of result-list selectors the browser
// should wait on before extraction.
func (a *Adapter) ResultSelectors() []string {
	return a.rules.waitSelectors
}

// SearchURL builds the engine query URL for one keyword. Language, result
// count, locale, and the mobile marker are encoded per engine.
func (a *Adapter) SearchURL(keyword string, req serp.TrackingRequest) string {
	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	switch a.engine {
	case serp.EngineBing:
		u := fmt.Sprintf("https://www.bing.com/search?q=%s&count=%d&setlang=%s",
			url.QueryEscape(keyword), req.MaxResults, url.QueryEscape(lang))
		if req.Location != "" {
			u += "&cc=" + LocaleCode(req.Location)
		}
		if req.Device == serp.DeviceMobile {
			u += mobileMarker
		}
		return u
	case serp.EngineDuckDuckGo:
		u := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(keyword)
		if req.Location != "" {
			// kl is DDG's region-language pair, e.g. us-en.
			u += "&kl=" + url.QueryEscape(regionLanguage(LocaleCode(req.Location), lang))
		}
		return u
	default: // google
		u := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d&hl=%s&pws=0",
			url.QueryEscape(keyword), req.MaxResults, url.QueryEscape(lang))
		if req.Location != "" {
			u += "&gl=" + LocaleCode(req.Location)
		}
		if req.Device == serp.DeviceMobile {
			u += mobileMarker
		}
		return u
	}
}

// mobileMarker is the naive device marker the upstream dashboards key on.
const mobileMarker = "&mobile=1"

func regionLanguage(country, lang string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(country), lang)
}
