package engine

import "strings"

// localeCodes maps a human location to the country code the engines expect.
// Unmapped locations fall back to DefaultLocale; a known, documented
// simplification rather than a geocoding layer.
var localeCodes = map[string]string{
	"united states":  "US",
	"usa":            "US",
	"new york":       "US",
	"los angeles":    "US",
	"chicago":        "US",
	"united kingdom": "GB",
	"london":         "GB",
	"canada":         "CA",
	"toronto":        "CA",
	"australia":      "AU",
	"sydney":         "AU",
	"germany":        "DE",
	"berlin":         "DE",
	"france":         "FR",
	"paris":          "FR",
	"india":          "IN",
	"japan":          "JP",
	"brazil":         "BR",
	"spain":          "ES",
	"italy":          "IT",
	"netherlands":    "NL",
	"mexico":         "MX",
}

// DefaultLocale is used when the location has no mapping.
const DefaultLocale = "US"

// LocaleCode resolves a free-form location to a two-letter country code.
func LocaleCode(location string) string {
	if code, ok := localeCodes[strings.ToLower(strings.TrimSpace(location))]; ok {
		return code
	}
	return DefaultLocale
}
