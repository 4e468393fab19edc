package api

import (
	"mime"
	"strconv"
	"strings"
)

// negotiate returns the offer the Accept header ranks highest, preferring
// earlier offers on ties, or fallback when nothing matches.
func negotiate(accept string, offers []string, fallback string) string {
	if strings.TrimSpace(accept) == "" {
		return fallback
	}

	best, bestQ := fallback, 0.0
	for _, offer := range offers {
		q := quality(accept, offer)
		if q > bestQ {
			best, bestQ = offer, q
		}
	}
	return best
}

// quality returns the q-value the Accept header assigns to offer, using
// the most specific matching range
func quality(accept, offer string) float64 {
	offerType, offerSubtype, _ := strings.Cut(offer, "/")
	q, specificity := 0.0, -1
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		t, subtype, _ := strings.Cut(mediaType, "/")
		var s int
		switch {
		case t == offerType && subtype == offerSubtype:
			s = 2
		case t == offerType && subtype == "*":
			s = 1
		case t == "*" && subtype == "*":
			s = 0
		default:
			continue
		}
		if s <= specificity {
			continue
		}

		specificity, q = s, 1.0
		if value, has := params["q"]; has {
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				q = parsed
			}
		}
	}
	return q
}
