package engine

// ruleSet carries the selector fallback chains for one engine. The engines do
// not share markup, so every field is per-engine; chains are ordered from the
// current layout to older fallbacks.
type ruleSet struct {
	waitSelectors    []string
	containers       []string
	titles           []string
	links            []string
	snippets         []string
	sitelinks        []string
	localMarkers     []string
	featuredNeighbor string

	featureFeatured []string
	featureLocal    []string
	featureShopping []string
	featureVideo    []string
	featureNews     []string

	unwrapRedirect bool
}

var googleRules = ruleSet{
	waitSelectors: []string{"#search .g", "#rso .MjjYud", "#search .MjjYud", "#rso"},
	containers:    []string{"#search .g", "#rso .g", "#search .MjjYud", "#rso .MjjYud"},
	titles:        []string{"h3.LC20lb", "h3"},
	links:         []string{".yuRUbf a", "a"},
	snippets:      []string{".VwiC3b", ".IsZvec"},
	sitelinks:     []string{".HiHjCd a", ".St3GK a"},
	localMarkers:  []string{".rllt__details", "[data-local-attribute]"},

	featuredNeighbor: ".xpdopen, .kp-blk",
	featureFeatured:  []string{".xpdopen", ".kp-blk", ".IZ6rdc"},
	featureLocal:     []string{"#lcl_akp", ".rllt__details", ".VkpGBb"},
	featureShopping:  []string{".sh-dgr__grid-result", ".commercial-unit-desktop-top", ".pla-unit"},
	featureVideo:     []string{"video-voyager", ".X7NTVe", ".RzdJxc"},
	featureNews:      []string{".nChh6e", "g-section-with-header .SoaBEf"},
}

var bingRules = ruleSet{
	waitSelectors: []string{"li.b_algo", "#b_results"},
	containers:    []string{"li.b_algo"},
	titles:        []string{"h2"},
	links:         []string{"h2 a", "a"},
	snippets:      []string{"div.b_caption p", ".b_caption", "p"},
	sitelinks:     []string{"ul.b_deeplinks_expand a", ".b_deep a"},
	localMarkers:  []string{".b_localDesc"},

	featuredNeighbor: ".b_ans",
	featureFeatured:  []string{".b_ans .b_focusTextMedium", ".b_ans .b_entityTP"},
	featureLocal:     []string{".b_localMap", ".lMapContainer", ".b_scard"},
	featureShopping:  []string{".pa_item", ".b_adProduct"},
	featureVideo:     []string{".mc_vtvc", ".b_video"},
	featureNews:      []string{".news-card", ".b_nwsAns"},
}

var duckduckgoRules = ruleSet{
	waitSelectors: []string{".result", "article.result", ".web-result", "#links"},
	containers:    []string{".result", "article.result", ".web-result"},
	titles:        []string{"h2 a.result__a", ".result__title", "h2"},
	links:         []string{"a.result__a", "a.result__url", ".result__url"},
	snippets:      []string{".result__snippet", ".result__snippet-truncate"},

	// DDG's HTML endpoint carries no feature modules beyond the zero-click
	// box, which maps closest to a featured snippet.
	featureFeatured: []string{".zci", ".zci__result"},

	unwrapRedirect: true,
}
