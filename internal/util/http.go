package util

import (
	"net/http"
	"strings"
)

// ParseSameSite maps the configured same_site value to its cookie mode.
// Unknown values fall back to lax.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
